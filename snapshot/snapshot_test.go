package snapshot

import (
	"testing"

	"github.com/chazu/objtrace/track"
)

// TestCaptureCopiesRegistryState verifies a snapshot reflects the
// tracker's counters and recorded instances.
func TestCaptureCopiesRegistryState(t *testing.T) {
	tr := track.New()
	tr.Record("Box")

	x := new(int)
	tr.Alloc("Box", x)
	tr.Alloc("Box", new(int))
	tr.Alloc("Crate", new(int))
	tr.Tag(x, "startup")

	snap := Capture(tr)
	if snap.TakenAt.IsZero() {
		t.Error("snapshot has no timestamp")
	}
	if len(snap.Classes) != 2 {
		t.Fatalf("snapshot has %d classes, want 2", len(snap.Classes))
	}

	box := snap.Classes[0]
	if box.Class != "Box" {
		t.Fatalf("first class = %q, want Box", box.Class)
	}
	if box.Count != 2 || box.Total != 2 || box.Peak != 2 {
		t.Errorf("Box stats = %+v, want count/total/peak 2", box)
	}
	if len(box.Recorded) != 2 {
		t.Fatalf("Box has %d recorded instances, want 2", len(box.Recorded))
	}
	if box.Recorded[0].Tag != "startup" {
		t.Errorf("first recorded tag = %q, want %q", box.Recorded[0].Tag, "startup")
	}
	if box.Recorded[0].Ref == "" || box.Recorded[0].Ref == "<nil>" {
		t.Errorf("recorded ref rendered as %q", box.Recorded[0].Ref)
	}

	crate := snap.Classes[1]
	if len(crate.Recorded) != 0 {
		t.Errorf("non-recording class exported %d recorded instances", len(crate.Recorded))
	}
}

// TestWireRoundTrip verifies CBOR encode/decode preserves a snapshot.
func TestWireRoundTrip(t *testing.T) {
	tr := track.New()
	tr.Record("Box")
	x := new(int)
	tr.Alloc("Box", x)
	tr.Tag(x, "site A")

	snap := Capture(tr)
	data, err := Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.TakenAt.Equal(snap.TakenAt) {
		t.Errorf("timestamp changed: %v -> %v", snap.TakenAt, decoded.TakenAt)
	}
	if len(decoded.Classes) != 1 || decoded.Classes[0].Class != "Box" {
		t.Fatalf("decoded classes = %+v", decoded.Classes)
	}
	if decoded.Classes[0].Recorded[0].Tag != "site A" {
		t.Errorf("decoded tag = %q", decoded.Classes[0].Recorded[0].Tag)
	}
}

// TestCanonicalEncodingIsDeterministic verifies the same snapshot value
// always produces the same bytes.
func TestCanonicalEncodingIsDeterministic(t *testing.T) {
	tr := track.New()
	tr.SetActive(true)
	tr.Alloc("Box", new(int))
	snap := Capture(tr)

	first, err := Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Error("canonical encoding differed between calls")
	}
}

// TestUnmarshalGarbage verifies a decode error, not a panic.
func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("Unmarshal of garbage succeeded")
	}
}
