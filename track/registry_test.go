package track

import (
	"sync"
	"testing"
)

// TestUnseenClassReportsZero verifies that a class never allocated
// reports zero for every counter.
func TestUnseenClassReportsZero(t *testing.T) {
	tr := New()
	tr.SetActive(true)

	if got := tr.Count("Ghost"); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if got := tr.Total("Ghost"); got != 0 {
		t.Errorf("Total = %d, want 0", got)
	}
	if got := tr.Peak("Ghost"); got != 0 {
		t.Errorf("Peak = %d, want 0", got)
	}
}

// TestAllocCounters verifies count, total and peak after N allocations
// with no deallocations.
func TestAllocCounters(t *testing.T) {
	tr := New()
	tr.SetActive(true)

	const n = 7
	for i := 0; i < n; i++ {
		tr.Alloc("Box", new(int))
	}

	if got := tr.Count("Box"); got != n {
		t.Errorf("Count = %d, want %d", got, n)
	}
	if got := tr.Total("Box"); got != n {
		t.Errorf("Total = %d, want %d", got, n)
	}
	if got := tr.Peak("Box"); got != n {
		t.Errorf("Peak = %d, want %d", got, n)
	}
}

// TestDeallocKeepsTotalAndPeak verifies that destroying an instance
// drops the live count but leaves lifetime history untouched.
func TestDeallocKeepsTotalAndPeak(t *testing.T) {
	tr := New()
	tr.SetActive(true)

	x := new(int)
	tr.Alloc("Box", x)
	tr.Dealloc("Box", x)

	if got := tr.Count("Box"); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if got := tr.Total("Box"); got != 1 {
		t.Errorf("Total = %d, want 1", got)
	}
	if got := tr.Peak("Box"); got != 1 {
		t.Errorf("Peak = %d, want 1", got)
	}
}

// TestPeakNeverDecreases verifies peak monotonicity across an
// interleaving of allocations and deallocations.
func TestPeakNeverDecreases(t *testing.T) {
	tr := New()
	tr.SetActive(true)

	refs := make([]*int, 10)
	for i := range refs {
		refs[i] = new(int)
	}

	prevPeak := uint64(0)
	step := func(alloc bool, ref *int) {
		if alloc {
			tr.Alloc("Box", ref)
		} else {
			tr.Dealloc("Box", ref)
		}
		peak := tr.Peak("Box")
		if peak < prevPeak {
			t.Fatalf("peak decreased: %d -> %d", prevPeak, peak)
		}
		if count := tr.Count("Box"); peak < count {
			t.Fatalf("peak %d below live count %d", peak, count)
		}
		prevPeak = peak
	}

	step(true, refs[0])
	step(true, refs[1])
	step(false, refs[0])
	step(true, refs[2])
	step(true, refs[3])
	step(false, refs[1])
	step(false, refs[2])
	step(true, refs[4])
}

// TestSetActiveSwap verifies the swap semantics and that deactivation
// does not reset accumulated history.
func TestSetActiveSwap(t *testing.T) {
	tr := New()
	tr.SetActive(true)
	tr.Alloc("Box", new(int))

	if prev := tr.SetActive(false); !prev {
		t.Errorf("first SetActive(false) returned %v, want true", prev)
	}
	if prev := tr.SetActive(true); prev {
		t.Errorf("SetActive(true) returned %v, want false", prev)
	}

	// History accumulated before deactivation is still queryable.
	if got := tr.Total("Box"); got != 1 {
		t.Errorf("Total after reactivation = %d, want 1", got)
	}
	if got := tr.Peak("Box"); got != 1 {
		t.Errorf("Peak after reactivation = %d, want 1", got)
	}
}

// TestInactiveMutationsAreNoOps verifies that nothing is tracked while
// the tracker is inactive.
func TestInactiveMutationsAreNoOps(t *testing.T) {
	tr := New()

	tr.Alloc("Box", new(int))
	if got := tr.Count("Box"); got != 0 {
		t.Errorf("Count while inactive = %d, want 0", got)
	}

	tr.SetActive(true)
	if got := tr.Total("Box"); got != 0 {
		t.Errorf("Total after inactive alloc = %d, want 0", got)
	}
}

// TestClassesFirstSeenOrder verifies the tracked-class snapshot keeps
// insertion order.
func TestClassesFirstSeenOrder(t *testing.T) {
	tr := New()
	tr.SetActive(true)

	tr.Alloc("Gamma", new(int))
	tr.Alloc("Alpha", new(int))
	tr.Alloc("Beta", new(int))
	tr.Alloc("Alpha", new(int))

	classes := tr.Classes()
	want := []ClassID{"Gamma", "Alpha", "Beta"}
	if len(classes) != len(want) {
		t.Fatalf("Classes() returned %d entries, want %d", len(classes), len(want))
	}
	for i, class := range want {
		if classes[i] != class {
			t.Errorf("Classes()[%d] = %q, want %q", i, classes[i], class)
		}
	}
}

// TestConcurrentAllocDealloc exercises the registry from parallel
// goroutines and checks the aggregate invariants afterwards.
func TestConcurrentAllocDealloc(t *testing.T) {
	tr := New()
	tr.SetActive(true)

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ref := new(int)
				tr.Alloc("Shared", ref)
				tr.Dealloc("Shared", ref)
			}
		}()
	}
	wg.Wait()

	if got := tr.Count("Shared"); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if got := tr.Total("Shared"); got != workers*perWorker {
		t.Errorf("Total = %d, want %d", got, workers*perWorker)
	}
	if peak := tr.Peak("Shared"); peak == 0 || peak > workers {
		t.Errorf("Peak = %d, want in [1, %d]", peak, workers)
	}
}

// TestStatsCopies verifies Stats and AllStats return copies that match
// the individual accessors.
func TestStatsCopies(t *testing.T) {
	tr := New()
	tr.SetActive(true)

	tr.Alloc("Box", new(int))
	tr.Alloc("Box", new(int))
	tr.Alloc("Crate", new(int))

	st, ok := tr.Stats("Box")
	if !ok {
		t.Fatal("Stats(Box) reported unseen")
	}
	if st.Count != 2 || st.Total != 2 || st.Peak != 2 {
		t.Errorf("Stats(Box) = %+v, want count/total/peak 2", st)
	}

	if _, ok := tr.Stats("Ghost"); ok {
		t.Error("Stats(Ghost) reported seen")
	}

	all := tr.AllStats()
	if len(all) != 2 {
		t.Fatalf("AllStats returned %d entries, want 2", len(all))
	}
	if all[0].Class != "Box" || all[1].Class != "Crate" {
		t.Errorf("AllStats order = %q, %q", all[0].Class, all[1].Class)
	}
}
