package store

import (
	"testing"

	"fidx/internal/fact"
	"fidx/internal/span"
)

// liveFacts snapshots the store's live content for equality checks.
func liveFacts(st *Store) map[fact.ID]fact.Fact {
	out := make(map[fact.ID]fact.Fact)
	st.EachLive(func(id fact.ID, f fact.Fact) bool {
		out[id] = f
		return true
	})
	return out
}

// sameLiveContent compares live facts ignoring generation stamps, which
// always move forward even when a delta is undone.
func sameLiveContent(a, b map[fact.ID]fact.Fact) bool {
	if len(a) != len(b) {
		return false
	}
	for id, f := range a {
		g, ok := b[id]
		if !ok {
			return false
		}
		if f.Subject() != g.Subject() || f.Predicate() != g.Predicate() ||
			f.Object() != g.Object() {
			return false
		}
	}
	return true
}

func TestApplyIsAtomicOnValidationFailure(t *testing.T) {
	st := New()
	d0 := NewDelta()
	d0.Add(wordFact(0, 5))
	if err := d0.Apply(st, nil); err != nil {
		t.Fatal(err)
	}
	before := liveFacts(st)

	// Removing a nonexistent fact fails validation; adds in the same
	// delta must not become visible.
	bad := NewDelta()
	bad.Add(wordFact(10, 15))
	bad.Remove(999)
	err := bad.Apply(st, nil)
	if CodeOf(err) != UnknownFact {
		t.Fatalf("expected UnknownFact, got %v", err)
	}
	if st.Generation() != 1 {
		t.Errorf("failed apply bumped generation to %d", st.Generation())
	}
	if !sameLiveContent(before, liveFacts(st)) {
		t.Error("failed apply changed store content")
	}
}

func TestApplyConsumesDelta(t *testing.T) {
	st := New()
	d := NewDelta()
	d.Add(wordFact(0, 5))
	if err := d.Apply(st, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Apply(st, nil); CodeOf(err) != InvalidDelta {
		t.Fatalf("second apply should fail, got %v", err)
	}
}

func TestReverseInverseLaw(t *testing.T) {
	st := New()
	idx := NewIndex(st)

	base := NewDelta()
	base.Add(wordFact(0, 5))
	base.Add(wordFact(10, 15))
	base.Add(wordFact(20, 25))
	if err := base.Apply(st, idx); err != nil {
		t.Fatal(err)
	}
	before := liveFacts(st)

	// A delta exercising all three change kinds.
	orig, _ := st.Get(2)
	d := NewDelta()
	d.Add(wordFact(30, 35))
	d.Remove(0)
	d.Modify(2, orig, orig.WithSubject(span.New(50, 55)))
	if err := d.Apply(st, idx); err != nil {
		t.Fatal(err)
	}
	if sameLiveContent(before, liveFacts(st)) {
		t.Fatal("delta had no observable effect")
	}

	rev, err := d.Reverse()
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if err := rev.Apply(st, idx); err != nil {
		t.Fatalf("apply reversed: %v", err)
	}
	if !sameLiveContent(before, liveFacts(st)) {
		t.Errorf("reverse did not restore content:\nbefore: %v\nafter:  %v",
			before, liveFacts(st))
	}

	// The index agrees with the restored content.
	got := idx.FindInSpan(span.New(0, 100)).Collect()
	if len(got) != 3 {
		t.Errorf("index sees %d facts after undo, want 3", len(got))
	}
}

func TestReverseRequiresApply(t *testing.T) {
	d := NewDelta()
	d.Add(wordFact(0, 5))
	if _, err := d.Reverse(); CodeOf(err) != InvalidDelta {
		t.Fatalf("expected InvalidDelta, got %v", err)
	}
}

func TestMergeRequiresAdjacency(t *testing.T) {
	a := &Delta{Generation: 3}
	b := &Delta{Generation: 5}
	if _, err := a.Merge(b); CodeOf(err) != InvalidDelta {
		t.Fatalf("merging non-adjacent deltas must fail, got %v", err)
	}

	c := &Delta{Generation: 4}
	if _, err := a.Merge(c); err != nil {
		t.Fatalf("adjacent merge failed: %v", err)
	}
}

func TestMergeCancelsAddThenRemove(t *testing.T) {
	st := New()

	d1 := NewDelta()
	d1.Add(wordFact(0, 5))
	d1.Add(wordFact(10, 15))
	if err := d1.Apply(st, nil); err != nil {
		t.Fatal(err)
	}

	d2 := NewDelta()
	d2.Remove(d1.AddedIDs()[0])
	if err := d2.Apply(st, nil); err != nil {
		t.Fatal(err)
	}

	merged, err := d1.Merge(d2)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged.Added) != 1 || merged.Added[0].Subject() != span.New(10, 15) {
		t.Errorf("merged.Added = %v", merged.Added)
	}
	if len(merged.Removed) != 0 {
		t.Errorf("cancelled removal survived: %v", merged.Removed)
	}
}

func TestMergeReplaysFromOriginalState(t *testing.T) {
	// Two stores prepared to the same starting state: one takes the pair
	// of deltas, the other replays their merge.
	live := New()
	replay := New()
	for _, st := range []*Store{live, replay} {
		base := NewDelta()
		base.Add(wordFact(0, 5))
		if err := base.Apply(st, nil); err != nil {
			t.Fatal(err)
		}
	}

	d1 := NewDelta()
	d1.Add(wordFact(10, 15))
	if err := d1.Apply(live, nil); err != nil {
		t.Fatal(err)
	}
	d2 := NewDelta()
	d2.Remove(0)
	if err := d2.Apply(live, nil); err != nil {
		t.Fatal(err)
	}

	merged, err := d1.Merge(d2)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Generation != d1.Generation {
		t.Fatalf("merged delta labeled for generation %d, want %d",
			merged.Generation, d1.Generation)
	}
	if err := merged.Apply(replay, nil); err != nil {
		t.Fatalf("replaying merged delta: %v", err)
	}
	if !sameLiveContent(liveFacts(live), liveFacts(replay)) {
		t.Errorf("replay diverged:\nlive:   %v\nreplay: %v",
			liveFacts(live), liveFacts(replay))
	}
}

func TestMergeComposesModifications(t *testing.T) {
	f := wordFact(0, 5)
	mid := f.WithSubject(span.New(10, 15))
	final := f.WithSubject(span.New(20, 25))

	a := &Delta{Generation: 1, Modified: []Modification{{ID: 7, From: f, To: mid}}}
	b := &Delta{Generation: 2, Modified: []Modification{{ID: 7, From: mid, To: final}}}

	merged, err := a.Merge(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Modified) != 1 {
		t.Fatalf("composed to %d modifications", len(merged.Modified))
	}
	m := merged.Modified[0]
	if m.From.Subject() != span.New(0, 5) || m.To.Subject() != span.New(20, 25) {
		t.Errorf("composition gave %v -> %v", m.From.Subject(), m.To.Subject())
	}
}

func TestGenerationOverflow(t *testing.T) {
	st := New()
	st.gen = fact.MaxGeneration

	d := NewDelta()
	d.Add(wordFact(0, 1))
	if err := d.Apply(st, nil); CodeOf(err) != GenerationOverflow {
		t.Fatalf("expected GenerationOverflow, got %v", err)
	}
}
