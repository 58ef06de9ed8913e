//go:build amd64 || arm64

package stack

// getfp returns the caller's frame pointer. Implemented in assembly;
// the frame-pointer chain it anchors is only valid on architectures
// where the Go compiler maintains frame pointers.
func getfp() uintptr
