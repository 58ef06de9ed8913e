package stack

import (
	"runtime"
	"unsafe"
)

// MaxWalkDepth bounds how many frames one walk may chase. There is no
// portable instruction for "give me frame N"; chasing saved frame
// pointers is the only generic technique, and the bound caps the amount
// of unsafe work per call.
const MaxWalkDepth = 100

// frame mirrors the word pair spilled at a frame base on amd64 and
// arm64: the caller's frame pointer, then the return address.
type frame struct {
	fp unsafe.Pointer
	pc uintptr
}

const ptrAlign = unsafe.Sizeof(uintptr(0)) - 1

// walkOwnFrames is the number of walker-internal frames (walk and its
// exported wrapper) skipped before depth counting starts.
const walkOwnFrames = 2

type selector int

const (
	selFrame selector = iota
	selReturn
)

// FrameAddress returns the base address of the stack frame depth levels
// above the caller: depth 0 is the caller's own frame. The result is
// absent when the chain terminates early, the depth exceeds
// MaxWalkDepth, frame pointers are unavailable on this architecture, or
// the walk faults. A faulting walk still returns the deepest address
// read before the fault, flagged absent.
//
//go:noinline
func FrameAddress(depth int) (uintptr, bool) {
	if depth < 0 || depth > MaxWalkDepth {
		return 0, false
	}
	return walk(depth, selFrame)
}

// ReturnAddress returns the address execution resumes at after the
// frame depth levels above the caller completes: depth 0 is the
// caller's own return address, a program counter inside the caller's
// caller. The memory-safe runtime lookup is preferred unconditionally;
// the guarded frame-pointer walk only runs when the runtime cannot see
// the frame.
//
//go:noinline
func ReturnAddress(depth int) (uintptr, bool) {
	if depth < 0 || depth > MaxWalkDepth {
		return 0, false
	}
	if pc, _, _, ok := runtime.Caller(depth + 2); ok {
		return pc, true
	}
	return walk(depth, selReturn)
}

// walk chases the frame-pointer chain depth frames above the exported
// wrapper's caller and extracts the frame base or return address. The
// guard's result slot is updated as each frame is traversed, not just
// at the end, so a fault at depth N does not discard the shallower
// frames already read. The deferred recover is the checkpoint the
// armed fault panic unwinds to; the saved fault disposition is restored
// on both paths.
//
//go:noinline
func walk(depth int, sel selector) (val uintptr, ok bool) {
	g := acquireGuard()
	defer func() {
		g.release()
		if r := recover(); r != nil {
			val, ok = g.result, false
		}
	}()

	// Anchor the chain after guard setup: anything that can move the
	// stack must happen before the frame pointer is taken.
	return walkFrom(g, getfp(), depth, sel)
}

// walkFrom chases a frame-pointer chain from an explicit anchor. Callers
// own the guard setup; a fault here unwinds to their checkpoint with the
// partial result still in g.
func walkFrom(g *guard, fp uintptr, depth int, sel selector) (uintptr, bool) {
	for i := 0; ; i++ {
		if fp == 0 || fp&ptrAlign != 0 {
			return g.result, false
		}
		f := (*frame)(unsafe.Pointer(fp))
		if i >= walkOwnFrames {
			if sel == selFrame {
				g.result = fp
			} else {
				g.result = f.pc
			}
			g.traversed = i - walkOwnFrames + 1
			if i == depth+walkOwnFrames {
				return g.result, true
			}
		}
		fp = uintptr(f.fp)
	}
}

// chainDepth counts frames by chasing the frame-pointer chain until it
// terminates, faults, or hits the backtrace bound. A fault leaves the
// partial count intact. Returns 0 when frame pointers are unavailable.
//
//go:noinline
func chainDepth() (n int) {
	g := acquireGuard()
	defer func() {
		g.release()
		// A fault just ends the count at the frames already seen.
		if r := recover(); r != nil {
			n = g.traversed
		}
	}()
	return chainLen(g, getfp())
}

// chainLen counts frames from an explicit anchor, keeping the running
// count in g so a fault mid-chain preserves it.
func chainLen(g *guard, fp uintptr) int {
	for fp != 0 && fp&ptrAlign == 0 && g.traversed < MaxBacktrace {
		f := (*frame)(unsafe.Pointer(fp))
		g.traversed++
		fp = uintptr(f.fp)
	}
	return g.traversed
}

// CountFrames returns the number of call frames above the caller. The
// runtime's safe walker is preferred; the guarded chain count is the
// fallback when it reports nothing.
func CountFrames() int {
	pcs := make([]uintptr, MaxBacktrace)
	if n := runtime.Callers(2, pcs); n > 0 {
		return n
	}
	if n := chainDepth() - walkOwnFrames; n > 0 {
		return n
	}
	return 0
}
