// Package snapshot exports point-in-time copies of the allocation
// registry for offline leak triage: per-class statistics plus, for
// recording classes, the identities and tags of every live recorded
// instance.
package snapshot

import (
	"fmt"
	"reflect"
	"time"

	"github.com/chazu/objtrace/track"
)

// RecordedObject is one retained live instance: an opaque identity
// rendering and the stringified tag it carried, if any.
type RecordedObject struct {
	Ref string `cbor:"ref"`
	Tag string `cbor:"tag,omitempty"`
}

// ClassStats is the exported statistics of one class.
type ClassStats struct {
	Class    string           `cbor:"class"`
	Count    uint64           `cbor:"count"`
	Total    uint64           `cbor:"total"`
	Peak     uint64           `cbor:"peak"`
	Recorded []RecordedObject `cbor:"recorded,omitempty"`
}

// Snapshot is one timestamped export of the whole registry, classes in
// first-seen order.
type Snapshot struct {
	TakenAt time.Time    `cbor:"taken_at"`
	Classes []ClassStats `cbor:"classes"`
}

// Capture copies the current state of t. Per-class copies are taken
// one class at a time, so a snapshot concurrent with mutation is
// best-effort, like every other read of the registry.
func Capture(t *track.Tracker) *Snapshot {
	snap := &Snapshot{TakenAt: time.Now().UTC()}
	for _, st := range t.AllStats() {
		cs := ClassStats{
			Class: string(st.Class),
			Count: st.Count,
			Total: st.Total,
			Peak:  st.Peak,
		}
		if st.Recording {
			refs, tags, ok := t.RecordedWithTags(st.Class)
			if ok {
				cs.Recorded = make([]RecordedObject, len(refs))
				for i, ref := range refs {
					cs.Recorded[i] = RecordedObject{
						Ref: formatRef(ref),
						Tag: formatTag(tags[i]),
					}
				}
			}
		}
		snap.Classes = append(snap.Classes, cs)
	}
	return snap
}

// formatRef renders an instance identity without dereferencing it
// beyond what fmt does: pointer-like refs become their address.
func formatRef(ref track.Ref) string {
	if ref == nil {
		return "<nil>"
	}
	v := reflect.ValueOf(ref)
	switch v.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Map, reflect.Func:
		return fmt.Sprintf("0x%x", v.Pointer())
	}
	return fmt.Sprintf("%v", ref)
}

func formatTag(tag any) string {
	if tag == nil {
		return ""
	}
	return fmt.Sprintf("%v", tag)
}
