package track

// ---------------------------------------------------------------------------
// recordingStore: live-instance retention for one recording class
// ---------------------------------------------------------------------------

// recordingStore keeps the live instances of one recording class as
// parallel ref/tag slices grown in lockstep. Insertion order is
// preserved on removal so triage tooling can correlate recorded order
// with allocation order. All methods assume the registry lock is held.
type recordingStore struct {
	refs []Ref
	tags []any
}

// append retains ref with an empty tag.
func (s *recordingStore) append(ref Ref) {
	s.refs = append(s.refs, ref)
	s.tags = append(s.tags, nil)
}

// remove forgets the first occurrence of ref, shifting later elements
// of both slices left to close the gap. It returns the tag the ref
// carried so the caller can release it outside the lock. A ref that is
// not present is a no-op.
func (s *recordingStore) remove(ref Ref) (tag any, ok bool) {
	for i, r := range s.refs {
		if r != ref {
			continue
		}
		tag = s.tags[i]
		last := len(s.refs) - 1
		copy(s.refs[i:], s.refs[i+1:])
		copy(s.tags[i:], s.tags[i+1:])
		s.refs[last] = nil
		s.tags[last] = nil
		s.refs = s.refs[:last]
		s.tags = s.tags[:last]
		return tag, true
	}
	return nil, false
}

// tag swaps newTag onto the first occurrence of ref and returns the
// previous tag. ok is false when ref is not recorded here.
func (s *recordingStore) tag(ref Ref, newTag any) (prev any, ok bool) {
	for i, r := range s.refs {
		if r == ref {
			prev = s.tags[i]
			s.tags[i] = newTag
			return prev, true
		}
	}
	return nil, false
}

// snapshotRefs copies the recorded refs.
func (s *recordingStore) snapshotRefs() []Ref {
	out := make([]Ref, len(s.refs))
	copy(out, s.refs)
	return out
}

// snapshot copies both slices.
func (s *recordingStore) snapshot() ([]Ref, []any) {
	refs := make([]Ref, len(s.refs))
	copy(refs, s.refs)
	tags := make([]any, len(s.tags))
	copy(tags, s.tags)
	return refs, tags
}

// Releaser is implemented by tags that need explicit cleanup when the
// store lets go of them. Release runs strictly outside the registry
// lock, so it may call back into the tracker.
type Releaser interface {
	Release()
}

// releaseTag invokes the tag's cleanup, if it declares one. Must not be
// called with the registry lock held.
func releaseTag(tag any) {
	if r, isReleaser := tag.(Releaser); isReleaser {
		r.Release()
	}
}
