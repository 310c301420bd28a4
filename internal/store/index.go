package store

import (
	"sort"

	"fidx/internal/fact"
	"fidx/internal/span"
	"fidx/internal/stream"
)

// entry is one indexed fact: its subject range and id. Entries sort by
// (start, id), which is exactly the stable query order the index promises.
type entry struct {
	start uint32
	end   uint32
	id    fact.ID
}

func entryLess(a, b entry) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return a.id < b.id
}

// Index is the derived, rebuildable view over a store: direct lookup comes
// from the store's log itself; the index adds span-overlap and
// per-predicate access. Update(delta) is the only mutation path and is
// all-or-nothing: staged slices are swapped in only once nothing can fail,
// so a failed update leaves the index in its pre-update state.
type Index struct {
	store *Store
	gen   fact.Generation

	// bySpan is sorted by (start, id); maxEnd[i] is the running maximum of
	// end over bySpan[:i+1], which gives overlap queries a binary-search
	// lower bound.
	bySpan []entry
	maxEnd []uint32

	// byPred buckets entries per predicate, each bucket in (start, id)
	// order.
	byPred map[fact.Predicate][]entry
}

// NewIndex creates an index over st, reflecting its current contents.
func NewIndex(st *Store) *Index {
	idx := &Index{store: st}
	idx.Rebuild()
	return idx
}

// Generation returns the store generation the index reflects.
func (idx *Index) Generation() fact.Generation {
	return idx.gen
}

// Rebuild derives the index from scratch from the store's live facts.
// Rebuilding from the same store state yields identical query results.
func (idx *Index) Rebuild() {
	entries := make([]entry, 0, idx.store.LiveCount())
	idx.store.EachLive(func(id fact.ID, f fact.Fact) bool {
		sub := f.Subject()
		entries = append(entries, entry{start: sub.Start, end: sub.End, id: id})
		return true
	})
	// EachLive walks in id order; a stable sort by start preserves the id
	// tie-break without comparing ids.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].start < entries[j].start })
	idx.install(entries)
	idx.gen = idx.store.Generation()
}

// install swaps in a fully built entry set and derives the secondary
// structures. Nothing here can fail, which is what makes Update atomic.
func (idx *Index) install(entries []entry) {
	maxEnd := make([]uint32, len(entries))
	byPred := make(map[fact.Predicate][]entry)
	var runningMax uint32
	for i, e := range entries {
		if e.end > runningMax {
			runningMax = e.end
		}
		maxEnd[i] = runningMax
		if f, ok := idx.store.Get(e.id); ok {
			byPred[f.Predicate()] = append(byPred[f.Predicate()], e)
		}
	}
	idx.bySpan = entries
	idx.maxEnd = maxEnd
	idx.byPred = byPred
}

// update incorporates an applied delta. Called by Delta.Apply after the
// store mutation succeeds; the delta's generation must be the one the
// store just advanced to.
func (idx *Index) update(d *Delta) error {
	if d.Generation != idx.gen+1 {
		return Errorf(InvalidDelta, "index at generation %d cannot apply delta for generation %d",
			idx.gen, d.Generation)
	}

	drop := make(map[fact.ID]bool, len(d.Removed)+len(d.Modified))
	for _, id := range d.Removed {
		drop[id] = true
	}
	for _, m := range d.Modified {
		drop[m.ID] = true
	}

	// Stage the new entry set: survivors, then re-added entries for
	// modified facts, restored facts, and additions; one final sort keeps
	// the (start, id) invariant.
	staged := make([]entry, 0, len(idx.bySpan)+len(d.addedIDs)+len(d.Restored))
	for _, e := range idx.bySpan {
		if !drop[e.id] {
			staged = append(staged, e)
		}
	}
	for _, m := range d.Modified {
		sub := m.To.Subject()
		staged = append(staged, entry{start: sub.Start, end: sub.End, id: m.ID})
	}
	for _, id := range d.Restored {
		if f, ok := idx.store.Get(id); ok {
			sub := f.Subject()
			staged = append(staged, entry{start: sub.Start, end: sub.End, id: id})
		}
	}
	for _, id := range d.addedIDs {
		if f, ok := idx.store.Get(id); ok {
			sub := f.Subject()
			staged = append(staged, entry{start: sub.Start, end: sub.End, id: id})
		}
	}
	sort.Slice(staged, func(i, j int) bool { return entryLess(staged[i], staged[j]) })

	idx.install(staged)
	idx.gen = d.Generation
	return nil
}

// FindInSpan returns a cursor over live facts whose subjects overlap q,
// ordered by (subject.start, id) ascending. The order is deterministic
// across repeated calls and across rebuilds from the same store state.
func (idx *Index) FindInSpan(q span.Span) *Cursor {
	return &Cursor{
		store:   idx.store,
		entries: idx.bySpan,
		pos:     idx.lowerBound(q),
		query:   q,
	}
}

// Find returns a cursor over live facts with the given predicate whose
// subjects overlap q, in the same stable order as FindInSpan.
func (idx *Index) Find(pred fact.Predicate, q span.Span) *Cursor {
	return &Cursor{
		store:   idx.store,
		entries: idx.byPred[pred],
		query:   q,
	}
}

// FindAll returns a cursor over every live fact with the given predicate,
// including facts with empty subject spans.
func (idx *Index) FindAll(pred fact.Predicate) *Cursor {
	return &Cursor{
		store:   idx.store,
		entries: idx.byPred[pred],
		query:   span.New(0, ^uint32(0)),
		all:     true,
	}
}

// lowerBound returns the first bySpan position that can overlap q: the
// smallest i with maxEnd[i] > q.Start. Everything before it ends at or
// before q.Start and can never overlap.
func (idx *Index) lowerBound(q span.Span) int {
	return sort.Search(len(idx.maxEnd), func(i int) bool {
		return idx.maxEnd[i] > q.Start
	})
}

// Cursor iterates facts in (subject.start, id) order. It is a snapshot
// view: an Update during iteration does not affect an existing cursor.
type Cursor struct {
	store   *Store
	entries []entry
	pos     int
	query   span.Span
	all     bool // match empty subject spans too
}

// Next returns the next matching fact, or ok=false when exhausted.
func (c *Cursor) Next() (fact.Fact, bool) {
	for ; c.pos < len(c.entries); c.pos++ {
		e := c.entries[c.pos]
		if !c.all && e.start >= c.query.End {
			// Entries are sorted by start; nothing later can overlap.
			c.pos = len(c.entries)
			return fact.Fact{}, false
		}
		if !c.overlaps(e) {
			continue
		}
		f, ok := c.store.Get(e.id)
		if !ok {
			continue
		}
		c.pos++
		return f, true
	}
	return fact.Fact{}, false
}

func (c *Cursor) overlaps(e entry) bool {
	if c.all {
		return true
	}
	return span.Span{Start: e.start, End: e.end}.Overlaps(c.query)
}

// Collect drains the cursor into a slice.
func (c *Cursor) Collect() []fact.Fact {
	var out []fact.Fact
	for {
		f, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}

// Stream adapts the cursor to the pull-based stream abstraction for large
// result sets.
func (c *Cursor) Stream() *stream.Stream[fact.Fact] {
	return stream.New(func() (fact.Fact, bool, error) {
		f, ok := c.Next()
		return f, ok, nil
	})
}
