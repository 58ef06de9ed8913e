// Package stack provides crash-safe introspection of the call stack:
// frame base addresses, return addresses at a given depth, and full
// backtraces. Where the Go runtime offers a memory-safe primitive it is
// preferred unconditionally; the frame-pointer walker is a guarded
// fallback that converts invalid-memory faults into absent results
// rather than process crashes.
package stack

import (
	"runtime/debug"
	"sync"

	"github.com/petermattis/goid"
)

// ---------------------------------------------------------------------------
// guard: per-goroutine fault-recovery state
// ---------------------------------------------------------------------------

// guard holds the in-flight state of one goroutine's walk: the result
// slot, the number of frames traversed so far, and the saved
// panic-on-fault disposition. Walks are synchronous and never nest, so
// a guard lives only for the duration of one walk: acquire registers it
// under the goroutine id and release removes it again.
type guard struct {
	result    uintptr // best value written so far
	traversed int     // frames successfully traversed
	prevFault bool    // disposition to restore on release
}

var (
	guardsMu sync.Mutex
	guards   = make(map[int64]*guard)
)

// acquireGuard registers a fresh guard for this goroutine, with memory
// faults armed to panic instead of killing the process. Every acquire
// must be paired with release on all exit paths.
func acquireGuard() *guard {
	g := &guard{}
	guardsMu.Lock()
	guards[goid.Get()] = g
	guardsMu.Unlock()

	// SetPanicOnFault applies to the current goroutine only and returns
	// the prior setting, which release restores exactly.
	g.prevFault = debug.SetPanicOnFault(true)
	return g
}

// release restores the goroutine's previous fault disposition and drops
// the registration. Safe to call from a deferred function on both the
// normal and fault paths.
func (g *guard) release() {
	debug.SetPanicOnFault(g.prevFault)
	guardsMu.Lock()
	delete(guards, goid.Get())
	guardsMu.Unlock()
}
