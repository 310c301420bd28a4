// Package store holds the append-only, generation-versioned fact log and
// the derived indexes over it. The store owns all fact memory; indexes are
// rebuildable views and never the source of truth.
//
// Mutation discipline: the store is written by a single applier (deltas
// applied serially); readers of a quiescent store need no locking. The
// concurrency model lives in the engine package.
package store

import (
	"fidx/internal/fact"
	"fidx/internal/span"
)

// regionShift sets the granularity of the region generation table: one
// bucket per 4 KiB of subject space. The cache uses region generations to
// detect staleness without a full-store generation comparison.
const regionShift = 12

// segment is a contiguous run of fact ids. Compaction can punch holes in
// the id space, so the log is a sorted list of segments rather than one
// slice; within a segment, id maps directly to a slot.
type segment struct {
	first fact.ID
	facts []fact.Fact
}

// Store is the append-only fact log.
type Store struct {
	segments []segment
	nextID   fact.ID
	gen      fact.Generation

	// removedAt records the generation at which an id was marked removed.
	// Removed facts stay readable as history until Compact drops them.
	removedAt map[fact.ID]fact.Generation

	// regions[b] is the generation that last touched subject bytes in
	// bucket b. Grown on demand.
	regions []fact.Generation
}

// New creates an empty store at generation zero.
func New() *Store {
	return &Store{removedAt: make(map[fact.ID]fact.Generation)}
}

// Restore rebuilds a store from a snapshot: facts carry their persisted
// generation stamps and are assigned dense ids from zero; the store resumes
// at generation gen.
func Restore(facts []fact.Fact, gen fact.Generation) *Store {
	s := New()
	for _, f := range facts {
		s.appendAt(f, f.Generation())
	}
	s.gen = gen
	return s
}

// Generation returns the store's current generation. It advances exactly
// once per applied delta, never per fact.
func (s *Store) Generation() fact.Generation {
	return s.gen
}

// NextID returns the id the next appended fact will receive.
func (s *Store) NextID() fact.ID {
	return s.nextID
}

// Append adds one fact, stamped at the current generation, and returns its
// id. Append never bumps the generation; generation bumps happen at the
// delta boundary. AppendBatch wrapped in a Delta is the normal path.
func (s *Store) Append(f fact.Fact) fact.ID {
	return s.appendAt(f, s.gen)
}

// AppendBatch appends facts in order, returning their ids.
func (s *Store) AppendBatch(facts []fact.Fact) []fact.ID {
	ids := make([]fact.ID, len(facts))
	for i, f := range facts {
		ids[i] = s.Append(f)
	}
	return ids
}

func (s *Store) appendAt(f fact.Fact, gen fact.Generation) fact.ID {
	id := s.nextID
	s.nextID++
	f = f.WithGeneration(gen)

	if n := len(s.segments); n > 0 {
		last := &s.segments[n-1]
		if last.first+fact.ID(len(last.facts)) == id {
			last.facts = append(last.facts, f)
			s.touch(f.Subject(), gen)
			return id
		}
	}
	s.segments = append(s.segments, segment{first: id, facts: []fact.Fact{f}})
	s.touch(f.Subject(), gen)
	return id
}

// Get returns the fact for id, including facts marked removed but not yet
// compacted. The second result is false for ids that never existed or were
// compacted away.
func (s *Store) Get(id fact.ID) (fact.Fact, bool) {
	seg := s.findSegment(id)
	if seg == nil {
		return fact.Fact{}, false
	}
	return seg.facts[id-seg.first], true
}

// Live reports whether id resolves to a fact that is present and not
// marked removed.
func (s *Store) Live(id fact.ID) bool {
	if _, removed := s.removedAt[id]; removed {
		return false
	}
	return s.findSegment(id) != nil
}

func (s *Store) findSegment(id fact.ID) *segment {
	// Binary search over segments by first id.
	lo, hi := 0, len(s.segments)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.segments[mid].first <= id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return nil
	}
	seg := &s.segments[lo-1]
	if id-seg.first >= fact.ID(len(seg.facts)) {
		return nil
	}
	return seg
}

// markRemoved flags id as removed at gen. Delta apply path only.
func (s *Store) markRemoved(id fact.ID, gen fact.Generation) {
	s.removedAt[id] = gen
	if f, ok := s.Get(id); ok {
		s.touch(f.Subject(), gen)
	}
}

// restore clears a removal mark, making the fact live again. Used when a
// reversed delta is applied.
func (s *Store) restore(id fact.ID, gen fact.Generation) {
	delete(s.removedAt, id)
	if f, ok := s.Get(id); ok {
		s.touch(f.Subject(), gen)
	}
}

// replace swaps the record at id. Facts are immutable through the public
// API; only delta modifications (subject shifts after an edit) come here.
func (s *Store) replace(id fact.ID, f fact.Fact) bool {
	seg := s.findSegment(id)
	if seg == nil {
		return false
	}
	old := seg.facts[id-seg.first]
	seg.facts[id-seg.first] = f
	s.touch(old.Subject(), f.Generation())
	s.touch(f.Subject(), f.Generation())
	return true
}

// bumpGeneration advances the counter, guarding against overflow.
func (s *Store) bumpGeneration() (fact.Generation, error) {
	if s.gen >= fact.MaxGeneration {
		return 0, Errorf(GenerationOverflow, "generation counter exhausted at %d", s.gen)
	}
	s.gen++
	return s.gen, nil
}

// Len returns the number of facts in the log, including removed ones.
func (s *Store) Len() int {
	n := 0
	for _, seg := range s.segments {
		n += len(seg.facts)
	}
	return n
}

// LiveCount returns the number of facts not marked removed.
func (s *Store) LiveCount() int {
	return s.Len() - len(s.removedAt)
}

// EachLive calls fn for every live fact in id order.
func (s *Store) EachLive(fn func(fact.ID, fact.Fact) bool) {
	for _, seg := range s.segments {
		for i, f := range seg.facts {
			id := seg.first + fact.ID(i)
			if _, removed := s.removedAt[id]; removed {
				continue
			}
			if !fn(id, f) {
				return
			}
		}
	}
}

// EachRemoved calls fn for every removed-but-not-compacted fact.
func (s *Store) EachRemoved(fn func(fact.ID, fact.Fact, fact.Generation) bool) {
	for _, seg := range s.segments {
		for i, f := range seg.facts {
			id := seg.first + fact.ID(i)
			gen, removed := s.removedAt[id]
			if !removed {
				continue
			}
			if !fn(id, f, gen) {
				return
			}
		}
	}
}

// Compact physically drops facts whose removal generation is older than
// watermark, reclaiming history. Surviving ids are untouched: the log is
// rebuilt as segments around the holes. Returns the number of facts
// dropped.
func (s *Store) Compact(watermark fact.Generation) int {
	dropped := 0
	var rebuilt []segment
	for _, seg := range s.segments {
		var cur *segment
		for i, f := range seg.facts {
			id := seg.first + fact.ID(i)
			if gen, removed := s.removedAt[id]; removed && gen < watermark {
				delete(s.removedAt, id)
				dropped++
				cur = nil
				continue
			}
			if cur == nil {
				rebuilt = append(rebuilt, segment{first: id})
				cur = &rebuilt[len(rebuilt)-1]
			}
			cur.facts = append(cur.facts, f)
		}
	}
	if dropped > 0 {
		s.segments = rebuilt
	}
	return dropped
}

// touch records that gen modified facts about sp's region.
func (s *Store) touch(sp span.Span, gen fact.Generation) {
	lo := int(sp.Start >> regionShift)
	hi := int(sp.End >> regionShift)
	if hi >= len(s.regions) {
		grown := make([]fact.Generation, hi+1)
		copy(grown, s.regions)
		s.regions = grown
	}
	for b := lo; b <= hi; b++ {
		if s.regions[b] < gen {
			s.regions[b] = gen
		}
	}
}

// RegionGeneration returns the newest generation that has touched any part
// of sp's region. A cache entry recorded at or after this generation is
// still current for sp; anything older is stale.
func (s *Store) RegionGeneration(sp span.Span) fact.Generation {
	lo := int(sp.Start >> regionShift)
	hi := int(sp.End >> regionShift)
	if hi >= len(s.regions) {
		hi = len(s.regions) - 1
	}
	var gen fact.Generation
	for b := lo; b <= hi; b++ {
		if s.regions[b] > gen {
			gen = s.regions[b]
		}
	}
	return gen
}
