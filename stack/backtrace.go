package stack

import "runtime"

// MaxBacktrace caps the number of addresses one capture may return.
const MaxBacktrace = 1024

// collectorFrames is how many of the collector's own frames the
// fallback path subtracts from the estimated depth.
const collectorFrames = 2

// Capture returns the return addresses of the current call stack,
// most recent frame first, excluding the collector itself and capped at
// MaxBacktrace. Addresses are opaque values: never dereferenced, never
// resolved to symbols. The runtime's safe walker yields the whole
// sequence in one call; the guarded frame-pointer path only runs when
// it reports nothing.
func Capture() []uintptr {
	pcs := make([]uintptr, MaxBacktrace)
	if n := runtime.Callers(2, pcs); n > 0 {
		return pcs[:n:n]
	}
	return captureSlow()
}

// captureSlow estimates the available depth with a guarded frame count,
// discounts the collector's own frames, then queries return addresses
// for increasing depth until one is absent or the bound is reached.
//
//go:noinline
func captureSlow() []uintptr {
	limit := chainDepth() - collectorFrames
	if limit > MaxBacktrace {
		limit = MaxBacktrace
	}
	if limit > MaxWalkDepth {
		limit = MaxWalkDepth
	}
	if limit <= 0 {
		return nil
	}
	out := make([]uintptr, 0, limit)
	for depth := 0; depth < limit; depth++ {
		pc, ok := ReturnAddress(depth)
		if !ok {
			break
		}
		out = append(out, pc)
	}
	return out
}
