//go:build !amd64 && !arm64

package stack

// Frame pointers are not maintained on this architecture; walks report
// no data and callers fall back to the runtime's safe primitives.
func getfp() uintptr { return 0 }
