// Package track maintains per-class allocation statistics for a
// managed-object host: live counts, lifetime totals, historical peaks,
// and optional retention of every live instance of chosen classes for
// leak triage. The host feeds it through allocation/deallocation hooks;
// everything it reports is best-effort diagnostic data, never
// correctness-critical state.
package track

import (
	"sync"
	"sync/atomic"
)

// ClassID is the stable identity of one object variant whose instances
// are tracked.
type ClassID string

// Ref is an ownership-neutral identity key for one instance. The
// tracker compares refs with == and never looks inside them, so hosts
// should pass pointers or other cheaply comparable handles.
type Ref any

// ---------------------------------------------------------------------------
// Tracker: per-class allocation statistics registry
// ---------------------------------------------------------------------------

// classEntry holds the statistics for one class. Entries are created on
// first sight and never removed: diagnostic history is cumulative for
// the life of the process.
type classEntry struct {
	class     ClassID
	count     uint64 // current live instances
	lastCount uint64 // count at the previous delta report
	total     uint64 // lifetime instances, monotonic
	peak      uint64 // historical max of count, monotonic
	recording bool
	rec       recordingStore
}

// Tracker is the allocation statistics registry. One mutex serializes
// every mutation and snapshot copy; the active flag is atomic so the
// inactive fast path never touches the lock. The lock is not reentrant:
// anything that can run user code (tag release, installed hooks) is
// deferred until after unlock.
type Tracker struct {
	mu      sync.Mutex
	active  atomic.Bool
	entries []*classEntry // insertion-ordered by first-seen class
}

// New returns an inactive Tracker with no tracked classes.
func New() *Tracker {
	return &Tracker{}
}

// SetActive atomically swaps the active flag and returns the previous
// value. While inactive every mutation is a no-op and every query
// reports zero values; accumulated totals and peaks are never reset, so
// history survives deactivate/reactivate cycles.
func (t *Tracker) SetActive(active bool) bool {
	return t.active.Swap(active)
}

// Active reports whether tracking is currently enabled.
func (t *Tracker) Active() bool {
	return t.active.Load()
}

// lookup returns the entry for class, or nil. Caller holds t.mu.
func (t *Tracker) lookup(class ClassID) *classEntry {
	// Linear scan: distinct tracked classes are few relative to
	// instance counts.
	for _, e := range t.entries {
		if e.class == class {
			return e
		}
	}
	return nil
}

// lookupOrCreate returns the entry for class, appending a zeroed entry
// on first sight. Caller holds t.mu.
func (t *Tracker) lookupOrCreate(class ClassID) *classEntry {
	if e := t.lookup(class); e != nil {
		return e
	}
	e := &classEntry{class: class}
	t.entries = append(t.entries, e)
	return e
}

// Alloc records the creation of one instance of class. The host must
// call it exactly once per instance created; if recording is enabled
// for the class, ref is retained with an empty tag.
func (t *Tracker) Alloc(class ClassID, ref Ref) {
	if !t.active.Load() {
		return
	}
	t.mu.Lock()
	e := t.lookupOrCreate(class)
	e.count++
	e.total++
	if e.count > e.peak {
		e.peak = e.count
	}
	if e.recording {
		e.rec.append(ref)
	}
	t.mu.Unlock()
}

// Dealloc records the final destruction of one instance of class. If
// the class is recording, the first recorded occurrence of ref is
// forgotten; a ref that was never recorded (it may predate recording
// activation) is a no-op. Any tag attached to the removed ref is
// released after the registry lock is dropped, so tag cleanup may call
// back into the tracker without deadlocking.
func (t *Tracker) Dealloc(class ClassID, ref Ref) {
	if !t.active.Load() {
		return
	}
	var dropped any
	t.mu.Lock()
	if e := t.lookup(class); e != nil {
		if e.count > 0 {
			e.count--
		}
		if e.recording {
			dropped, _ = e.rec.remove(ref)
		}
	}
	t.mu.Unlock()
	releaseTag(dropped)
}

// Count returns the number of currently live instances of class, or 0
// if the class has never been seen or tracking is inactive.
func (t *Tracker) Count(class ClassID) uint64 {
	if !t.active.Load() {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.lookup(class); e != nil {
		return e.count
	}
	return 0
}

// Total returns the lifetime number of instances of class ever created.
func (t *Tracker) Total(class ClassID) uint64 {
	if !t.active.Load() {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.lookup(class); e != nil {
		return e.total
	}
	return 0
}

// Peak returns the historical maximum of concurrently live instances
// of class.
func (t *Tracker) Peak(class ClassID) uint64 {
	if !t.active.Load() {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.lookup(class); e != nil {
		return e.peak
	}
	return 0
}

// Classes returns a snapshot of every class the tracker has ever seen,
// in first-seen order.
func (t *Tracker) Classes() []ClassID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ClassID, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.class
	}
	return out
}

// Stats is a point-in-time copy of one class entry.
type Stats struct {
	Class     ClassID
	Count     uint64
	Total     uint64
	Peak      uint64
	Recording bool
}

// Stats returns a copy of the statistics for class. The second result
// is false when the class has never been seen.
func (t *Tracker) Stats(class ClassID) (Stats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.lookup(class); e != nil {
		return Stats{
			Class:     e.class,
			Count:     e.count,
			Total:     e.total,
			Peak:      e.peak,
			Recording: e.recording,
		}, true
	}
	return Stats{}, false
}

// AllStats returns a copy of every entry's statistics in first-seen
// order.
func (t *Tracker) AllStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Stats, len(t.entries))
	for i, e := range t.entries {
		out[i] = Stats{
			Class:     e.class,
			Count:     e.count,
			Total:     e.total,
			Peak:      e.peak,
			Recording: e.recording,
		}
	}
	return out
}

// Record enables live-instance recording for class. Recording implies
// tracking, so the tracker is forced active; the entry is created if
// the class has not been seen yet. Instances allocated before this call
// are not retroactively recorded.
func (t *Tracker) Record(class ClassID) {
	t.active.Store(true)
	t.mu.Lock()
	e := t.lookupOrCreate(class)
	e.recording = true
	t.mu.Unlock()
}

// Recorded returns a copy of the live recorded instances of class in
// insertion order. The second result is false when the class is not
// recording. The copy is taken under the lock and handed out after
// unlock, so callers may finalize or re-enter the tracker while
// iterating.
func (t *Tracker) Recorded(class ClassID) ([]Ref, bool) {
	t.mu.Lock()
	e := t.lookup(class)
	if e == nil || !e.recording {
		t.mu.Unlock()
		return nil, false
	}
	refs := e.rec.snapshotRefs()
	t.mu.Unlock()
	return refs, true
}

// RecordedWithTags returns parallel copies of the recorded instances of
// class and their tags. Used by snapshot export; same locking
// discipline as Recorded.
func (t *Tracker) RecordedWithTags(class ClassID) (refs []Ref, tags []any, ok bool) {
	t.mu.Lock()
	e := t.lookup(class)
	if e == nil || !e.recording {
		t.mu.Unlock()
		return nil, nil, false
	}
	refs, tags = e.rec.snapshot()
	t.mu.Unlock()
	return refs, tags, true
}

// Tag attaches tag to the first recorded occurrence of ref in any
// recording class and returns the previously attached tag (nil when the
// ref carried none). The second result is false when ref is not
// recorded anywhere, in which case tag is not retained. The previous
// tag is handed back to the caller for release; the tracker itself does
// not release it.
func (t *Tracker) Tag(ref Ref, tag any) (prev any, ok bool) {
	t.mu.Lock()
	for _, e := range t.entries {
		if !e.recording {
			continue
		}
		if prev, ok = e.rec.tag(ref, tag); ok {
			break
		}
	}
	t.mu.Unlock()
	return prev, ok
}
