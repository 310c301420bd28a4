package engine

import (
	"bytes"
	"context"

	"fidx/internal/fact"
	"fidx/internal/span"
	"fidx/internal/store"
)

// Edit replaces the bytes of Span with NewText. OldText must match the
// document's current content at Span; the check catches edits built
// against a stale view before they can corrupt the index.
type Edit struct {
	Span    span.Span
	OldText []byte
	NewText []byte
}

func (ed Edit) shift() int64 {
	return int64(len(ed.NewText)) - int64(ed.Span.Len())
}

// ApplyEdit applies an edit to an indexed document. When the adapter
// supports incremental extraction and the edit is small, only the region
// around the edit is re-extracted: overlapping facts are removed, facts
// past the edit get their subjects shifted, and the re-extracted facts are
// added — all in one delta, one generation. Otherwise the whole document
// is re-extracted.
func (e *Engine) ApplyEdit(ctx context.Context, path string, ed Edit) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[path]
	if !ok {
		return Errorf(UnknownDocument, "no document %q", path)
	}

	old := doc.source
	if int(ed.Span.End) > len(old) {
		return Errorf(InvalidEdit, "edit span [%d,%d) exceeds document length %d",
			ed.Span.Start, ed.Span.End, len(old))
	}
	if !bytes.Equal(old[ed.Span.Start:ed.Span.End], ed.OldText) {
		return Errorf(InvalidEdit, "old text mismatch at [%d,%d)", ed.Span.Start, ed.Span.End)
	}

	next := make([]byte, 0, len(old)+len(ed.NewText)-int(ed.Span.Len()))
	next = append(next, old[:ed.Span.Start]...)
	next = append(next, ed.NewText...)
	next = append(next, old[ed.Span.End:]...)

	editSize := int(ed.Span.Len()) + len(ed.NewText)
	if !doc.adapter.Capabilities().SupportsIncremental || editSize > e.threshold {
		facts, err := e.extract(ctx, doc.adapter, next, span.New(0, uint32(len(next))))
		if err != nil {
			return err
		}
		return e.applyFull(doc, next, facts)
	}
	return e.applyIncremental(ctx, doc, ed, next)
}

// applyIncremental re-extracts only the edited region. Caller holds e.mu.
func (e *Engine) applyIncremental(ctx context.Context, doc *document, ed Edit, next []byte) error {
	// Region of the new source the edit produced. The adapter widens it as
	// needed (to whole lines for the plain adapter); the union of the
	// re-extracted fact subjects tells us what was actually covered.
	region := span.New(ed.Span.Start, ed.Span.Start+uint32(len(ed.NewText)))
	newFacts, err := e.extract(ctx, doc.adapter, next, region)
	if err != nil {
		return err
	}
	covered := region
	for _, f := range newFacts {
		covered = covered.Merge(f.Subject())
	}

	// Map the covered region back to the old coordinate space. Its start
	// lies before the edit, so it is unshifted; its end lies after, so it
	// moves by the edit's size difference.
	shift := ed.shift()
	oldEnd := int64(covered.End) - shift
	if oldEnd < int64(covered.Start) {
		oldEnd = int64(covered.Start)
	}
	if oldEnd > int64(len(doc.source)) {
		oldEnd = int64(len(doc.source))
	}
	oldCovered := span.New(covered.Start, uint32(oldEnd))

	delta := store.NewDelta()
	var touched []span.Span
	doc.store.EachLive(func(id fact.ID, f fact.Fact) bool {
		s := f.Subject()
		if s.Overlaps(oldCovered) {
			delta.Remove(id)
			touched = append(touched, s)
			return true
		}
		if s.Start >= oldCovered.End && shift != 0 {
			moved := span.New(uint32(int64(s.Start)+shift), uint32(int64(s.End)+shift))
			delta.Modify(id, f, f.WithSubject(moved))
			touched = append(touched, s, moved)
		}
		return true
	})
	for _, f := range newFacts {
		delta.Add(f)
		touched = append(touched, f.Subject())
	}

	if !delta.Empty() {
		if err := delta.Apply(doc.store, doc.index); err != nil {
			return err
		}
		e.metrics.FactsAppended(len(newFacts))
		e.metrics.DeltaApplied(uint32(doc.store.Generation()))
	}
	doc.source = next
	if doc.cache != nil {
		for _, s := range touched {
			doc.cache.Invalidate(s)
		}
	}
	return nil
}
