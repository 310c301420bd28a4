package store

import (
	"fidx/internal/fact"
)

// Modification replaces the record at ID, typically to shift a fact's
// subject after an edit moved the text it describes. From must match the
// record being replaced; To is the replacement.
type Modification struct {
	ID   fact.ID
	From fact.Fact
	To   fact.Fact
}

// invert swaps the modification's direction.
func (m Modification) invert() Modification {
	return Modification{ID: m.ID, From: m.To, To: m.From}
}

// Delta is an incremental change set advancing a store by exactly one
// generation. Lifecycle: built by an extractor run (full or incremental),
// consumed once by Apply, optionally retained for undo or replay.
type Delta struct {
	// Generation is the generation this delta advances the store to.
	// Zero means "the next one", assigned at Apply time.
	Generation fact.Generation

	Added    []fact.Fact
	Removed  []fact.ID
	Restored []fact.ID
	Modified []Modification

	// addedIDs records the ids Apply assigned to Added, so Reverse can
	// name them.
	addedIDs []fact.ID
	applied  bool
}

// NewDelta creates an empty delta targeting the next generation.
func NewDelta() *Delta {
	return &Delta{}
}

// Add queues a fact for appending.
func (d *Delta) Add(f fact.Fact) {
	d.Added = append(d.Added, f)
}

// Remove queues a live fact for removal.
func (d *Delta) Remove(id fact.ID) {
	d.Removed = append(d.Removed, id)
}

// Modify queues a record replacement.
func (d *Delta) Modify(id fact.ID, from, to fact.Fact) {
	d.Modified = append(d.Modified, Modification{ID: id, From: from, To: to})
}

// Empty reports whether the delta changes nothing.
func (d *Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 &&
		len(d.Restored) == 0 && len(d.Modified) == 0
}

// AddedIDs returns the ids Apply assigned to the delta's added facts, in
// append order. Empty before Apply.
func (d *Delta) AddedIDs() []fact.ID {
	return d.addedIDs
}

// Apply advances st (and idx, if non-nil) by exactly one generation. It is
// atomic with respect to the generation counter: everything is validated
// before the first mutation, and the mutations that follow cannot fail, so
// on error the store is unchanged and no partial batch is ever visible.
// A delta is consumed by Apply and cannot be applied twice.
func (d *Delta) Apply(st *Store, idx *Index) error {
	if d.applied {
		return Errorf(InvalidDelta, "delta for generation %d already applied", d.Generation)
	}
	if st.gen >= fact.MaxGeneration {
		return Errorf(GenerationOverflow, "generation counter exhausted at %d", st.gen)
	}
	next := st.gen + 1
	if d.Generation == 0 {
		d.Generation = next
	} else if d.Generation != next {
		return Errorf(InvalidDelta, "store at generation %d cannot apply delta for generation %d",
			st.gen, d.Generation)
	}
	if idx != nil && idx.gen != st.gen {
		return Errorf(InvalidDelta, "index at generation %d out of sync with store at %d",
			idx.gen, st.gen)
	}
	for _, id := range d.Removed {
		if !st.Live(id) {
			return Errorf(UnknownFact, "cannot remove fact %d: not live", id)
		}
	}
	for _, id := range d.Restored {
		if _, removed := st.removedAt[id]; !removed {
			return Errorf(UnknownFact, "cannot restore fact %d: not removed", id)
		}
	}
	for _, m := range d.Modified {
		if !st.Live(m.ID) {
			return Errorf(UnknownFact, "cannot modify fact %d: not live", m.ID)
		}
	}

	// Point of no return: nothing below can fail.
	st.gen = next
	d.addedIDs = make([]fact.ID, len(d.Added))
	for i, f := range d.Added {
		d.addedIDs[i] = st.appendAt(f, next)
	}
	for _, id := range d.Removed {
		st.markRemoved(id, next)
	}
	for _, id := range d.Restored {
		st.restore(id, next)
	}
	for _, m := range d.Modified {
		st.replace(m.ID, m.To.WithGeneration(next))
	}
	d.applied = true

	if idx != nil {
		if err := idx.update(d); err != nil {
			// Unreachable given the generation checks above; a rebuild
			// restores consistency rather than corrupting the view.
			idx.Rebuild()
		}
	}
	return nil
}

// Reverse produces the delta that undoes this one: added facts are
// removed, removed facts are restored, modifications run backwards. It is
// a pure data transformation and does not touch the store. The delta must
// have been applied, since only Apply knows the ids the additions
// received.
func (d *Delta) Reverse() (*Delta, error) {
	if !d.applied {
		return nil, Errorf(InvalidDelta, "cannot reverse an unapplied delta")
	}
	rev := &Delta{
		Removed:  append([]fact.ID(nil), d.addedIDs...),
		Restored: append([]fact.ID(nil), d.Removed...),
		Modified: make([]Modification, len(d.Modified)),
	}
	for i, m := range d.Modified {
		rev.Modified[i] = m.invert()
	}
	return rev, nil
}

// Merge combines this delta with the one that directly follows it,
// producing a single delta with the same net effect; compaction uses it to
// collapse history. The result carries d's generation so it replays from
// the state the pair advanced from. other must target exactly the next
// generation; merging non-adjacent deltas is a usage error, not silently
// accepted.
func (d *Delta) Merge(other *Delta) (*Delta, error) {
	if d.Generation == 0 || other.Generation != d.Generation+1 {
		return nil, Errorf(InvalidDelta, "cannot merge delta for generation %d into delta for generation %d",
			other.Generation, d.Generation)
	}

	merged := &Delta{Generation: d.Generation}

	// A fact added by d and removed by other cancels out entirely. This
	// can only be detected after d was applied, when its ids are known.
	cancelled := make(map[fact.ID]bool)
	if d.applied {
		addedBy := make(map[fact.ID]int, len(d.addedIDs))
		for i, id := range d.addedIDs {
			addedBy[id] = i
		}
		for _, id := range other.Removed {
			if _, ok := addedBy[id]; ok {
				cancelled[id] = true
			}
		}
		for i, id := range d.addedIDs {
			if !cancelled[id] {
				merged.Added = append(merged.Added, d.Added[i])
			}
		}
	} else {
		merged.Added = append(merged.Added, d.Added...)
	}
	merged.Added = append(merged.Added, other.Added...)

	merged.Removed = append(merged.Removed, d.Removed...)
	for _, id := range other.Removed {
		if !cancelled[id] {
			merged.Removed = append(merged.Removed, id)
		}
	}
	merged.Restored = append(merged.Restored, d.Restored...)
	merged.Restored = append(merged.Restored, other.Restored...)

	// Compose modifications: a fact modified by both collapses to the
	// first From and the last To.
	firstFrom := make(map[fact.ID]int)
	for _, m := range d.Modified {
		if i, seen := firstFrom[m.ID]; seen {
			merged.Modified[i].To = m.To
			continue
		}
		firstFrom[m.ID] = len(merged.Modified)
		merged.Modified = append(merged.Modified, m)
	}
	for _, m := range other.Modified {
		if i, seen := firstFrom[m.ID]; seen {
			merged.Modified[i].To = m.To
			continue
		}
		firstFrom[m.ID] = len(merged.Modified)
		merged.Modified = append(merged.Modified, m)
	}
	return merged, nil
}
