package track

import "sync"

// ---------------------------------------------------------------------------
// Hooks: swappable instrumentation the host drives on every lifecycle event
// ---------------------------------------------------------------------------

// Instrumentation receives every instance lifecycle event from the
// host object system. The default implementation is a Tracker; hosts
// with a customized allocation path can substitute their own and still
// feed this facility.
type Instrumentation interface {
	ObjectAllocated(class ClassID, ref Ref)
	ObjectDeallocated(class ClassID, ref Ref)
}

// ObjectAllocated implements Instrumentation.
func (t *Tracker) ObjectAllocated(class ClassID, ref Ref) {
	t.Alloc(class, ref)
}

// ObjectDeallocated implements Instrumentation.
func (t *Tracker) ObjectDeallocated(class ClassID, ref Ref) {
	t.Dealloc(class, ref)
}

// Hooks is the dispatch point the host object system calls on every
// allocation and deallocation. Swapping the installed instrumentation
// is serialized, but an event already in flight may observe either the
// old or new target; duplicate or momentarily stale instrumentation is
// harmless for a diagnostic feature.
type Hooks struct {
	mu      sync.Mutex
	current Instrumentation
	builtin Instrumentation
}

// NewHooks returns a hook table whose built-in target is builtin
// (normally the process Tracker).
func NewHooks(builtin Instrumentation) *Hooks {
	return &Hooks{current: builtin, builtin: builtin}
}

// Set installs inst as the target for subsequent events. A nil inst
// restores the built-in target.
func (h *Hooks) Set(inst Instrumentation) {
	h.mu.Lock()
	if inst == nil {
		h.current = h.builtin
	} else {
		h.current = inst
	}
	h.mu.Unlock()
}

// SetFuncs installs a bare callable pair. Passing nil for both restores
// the built-in target; a nil member of a mixed pair drops that event.
func (h *Hooks) SetFuncs(onAlloc, onDealloc func(ClassID, Ref)) {
	if onAlloc == nil && onDealloc == nil {
		h.Set(nil)
		return
	}
	h.Set(funcHooks{onAlloc: onAlloc, onDealloc: onDealloc})
}

// OnAlloc forwards one allocation event to the installed target.
func (h *Hooks) OnAlloc(class ClassID, ref Ref) {
	h.mu.Lock()
	inst := h.current
	h.mu.Unlock()
	inst.ObjectAllocated(class, ref)
}

// OnDealloc forwards one deallocation event to the installed target.
func (h *Hooks) OnDealloc(class ClassID, ref Ref) {
	h.mu.Lock()
	inst := h.current
	h.mu.Unlock()
	inst.ObjectDeallocated(class, ref)
}

// funcHooks adapts a callable pair to Instrumentation.
type funcHooks struct {
	onAlloc   func(ClassID, Ref)
	onDealloc func(ClassID, Ref)
}

func (f funcHooks) ObjectAllocated(class ClassID, ref Ref) {
	if f.onAlloc != nil {
		f.onAlloc(class, ref)
	}
}

func (f funcHooks) ObjectDeallocated(class ClassID, ref Ref) {
	if f.onDealloc != nil {
		f.onDealloc(class, ref)
	}
}
