// Package fact defines the atomic, immutable statements the index stores:
// a subject span, a predicate, and an object, stamped with an extractor
// confidence and a store generation. Facts deliberately discard tree
// structure; the object's fact-reference variant lets extractors build a
// DAG without tree ownership.
package fact

import (
	"fmt"
	"unsafe"

	"fidx/internal/span"
)

// ID identifies a fact by its position in the store's append-only log.
// IDs are assigned in append order and are never reused. The id is not part
// of the stored record, which is how the 24-byte budget holds.
type ID uint32

// Generation is the store's monotonic version counter. Every fact is
// visible "as of" some generation; a generation bump happens once per
// applied delta, never per fact.
type Generation uint32

// MaxGeneration is the last usable generation before the counter would
// overflow.
const MaxGeneration = Generation(^uint32(0) - 1)

// rel packs the predicate code (low 13 bits) and the object's value kind
// (high 3 bits) into one 16-bit word. The predicate space is a closed enum
// far below the 13-bit ceiling.
const (
	relPredMask = 0x1FFF
	relKindShift = 13
)

// Fact is the fixed 24-byte index record.
//
// Layout: subject packed span (8) + object payload (8) + generation (4) +
// predicate/kind word (2) + confidence half-float bits (2). The byte budget
// is a hard invariant, asserted at compile time below. Facts are immutable
// once appended; "updating" one means appending a replacement at a newer
// generation and removing the old id through a delta.
type Fact struct {
	subject span.Packed
	object  uint64
	gen     uint32
	rel     uint16
	conf    uint16
}

// Compile-time size assertion: sizeof(Fact) == 24 on every build.
const _ = uint(24 - unsafe.Sizeof(Fact{}))
const _ = uint(unsafe.Sizeof(Fact{}) - 24)

// New creates a fact about subject. Confidence is clamped to [0, 1]; use 1
// for syntactic facts and lower values for heuristic ones. The generation
// is zero until a delta applies the fact to a store.
func New(subject span.Span, pred Predicate, obj Value, confidence float32) Fact {
	return Fact{
		subject: subject.Pack(),
		object:  obj.bits,
		rel:     uint16(pred&relPredMask) | uint16(obj.kind)<<relKindShift,
		conf:    f16FromFloat(clamp01(confidence)),
	}
}

// Subject returns the span the fact is about.
func (f Fact) Subject() span.Span {
	return f.subject.Unpack()
}

// PackedSubject returns the subject without unpacking, for index keys.
func (f Fact) PackedSubject() span.Packed {
	return f.subject
}

// Predicate returns the fact's predicate.
func (f Fact) Predicate() Predicate {
	return Predicate(f.rel & relPredMask)
}

// Object returns the fact's object value.
func (f Fact) Object() Value {
	return Value{kind: ValueKind(f.rel >> relKindShift), bits: f.object}
}

// Confidence returns the extractor's certainty in [0, 1]. Informational
// metadata only: it never affects storage or ordering.
func (f Fact) Confidence() float32 {
	return f16ToFloat(f.conf)
}

// Generation returns the generation the fact became visible at.
func (f Fact) Generation() Generation {
	return Generation(f.gen)
}

// WithGeneration returns a copy of f stamped with g. Only the store's
// delta-apply path uses this; facts already appended are never restamped.
func (f Fact) WithGeneration(g Generation) Fact {
	f.gen = uint32(g)
	return f
}

// WithSubject returns a copy of f about a different span. Used by delta
// modifications that shift facts after an edit.
func (f Fact) WithSubject(s span.Span) Fact {
	f.subject = s.Pack()
	return f
}

// String renders the fact for logs and test failures.
func (f Fact) String() string {
	s := f.Subject()
	return fmt.Sprintf("[%d,%d) %s %s @g%d", s.Start, s.End, f.Predicate(), f.Object(), f.gen)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
