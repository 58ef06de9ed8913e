package track

import (
	"fmt"
	"strings"
)

// Fixed report texts for the no-data cases. Callers treat these as
// informational results, not errors.
const (
	InactiveMessage       = "allocation tracking is inactive\n"
	NoObjectsMessage      = "no live objects\n"
	NoChangesMessage      = "no changes since last report\n"
	NeverAllocatedMessage = "no objects were ever allocated\n"
)

// CurrentReport renders one "<value>\t<class>" line per class with a
// nonzero live count, in first-seen order. With sinceLast, the value is
// the signed change since the previous delta report, and every entry's
// reference point is advanced as a side effect, so two consecutive
// delta reports on a quiet registry both say nothing changed. Each call
// builds its own buffer, so concurrent reporting is safe.
func (t *Tracker) CurrentReport(sinceLast bool) string {
	if !t.active.Load() {
		return InactiveMessage
	}
	var b strings.Builder
	lines := 0
	t.mu.Lock()
	for _, e := range t.entries {
		value := int64(e.count)
		if sinceLast {
			value = int64(e.count) - int64(e.lastCount)
			e.lastCount = e.count
		}
		if value == 0 {
			continue
		}
		fmt.Fprintf(&b, "%d\t%s\n", value, e.class)
		lines++
	}
	t.mu.Unlock()
	if lines == 0 {
		if sinceLast {
			return NoChangesMessage
		}
		return NoObjectsMessage
	}
	return b.String()
}

// LifetimeReport renders one line per class whose lifetime total is
// nonzero, using the total as the value. Classes with no instance alive
// today still appear.
func (t *Tracker) LifetimeReport() string {
	if !t.active.Load() {
		return InactiveMessage
	}
	var b strings.Builder
	lines := 0
	t.mu.Lock()
	for _, e := range t.entries {
		if e.total == 0 {
			continue
		}
		fmt.Fprintf(&b, "%d\t%s\n", e.total, e.class)
		lines++
	}
	t.mu.Unlock()
	if lines == 0 {
		return NeverAllocatedMessage
	}
	return b.String()
}
