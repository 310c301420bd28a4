package fact

import (
	"fmt"

	"fidx/internal/atom"
	"fidx/internal/span"
)

// ValueKind tags the object union. Three bits are reserved for it in the
// fact record.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueNumber
	ValueSpan
	ValueAtom
	ValueFact
)

func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueNumber:
		return "number"
	case ValueSpan:
		return "span"
	case ValueAtom:
		return "atom"
	case ValueFact:
		return "fact"
	}
	return "unknown"
}

// Value is the tagged union a fact's object holds: nothing, a number, a
// span, an interned atom, or a reference to another fact.
type Value struct {
	kind ValueKind
	bits uint64
}

// None is the absent object.
func None() Value {
	return Value{}
}

// Number wraps an i64 object.
func Number(n int64) Value {
	return Value{kind: ValueNumber, bits: uint64(n)}
}

// SpanValue wraps a span object.
func SpanValue(s span.Span) Value {
	return Value{kind: ValueSpan, bits: uint64(s.Pack())}
}

// AtomValue wraps an interned-string object.
func AtomValue(id atom.ID) Value {
	return Value{kind: ValueAtom, bits: uint64(id)}
}

// FactRef wraps a reference to another fact, letting facts form a DAG.
func FactRef(id ID) Value {
	return Value{kind: ValueFact, bits: uint64(id)}
}

// Kind returns the union tag.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Number returns the numeric payload if the kind matches.
func (v Value) Number() (int64, bool) {
	return int64(v.bits), v.kind == ValueNumber
}

// Span returns the span payload if the kind matches.
func (v Value) Span() (span.Span, bool) {
	return span.Packed(v.bits).Unpack(), v.kind == ValueSpan
}

// Atom returns the atom payload if the kind matches.
func (v Value) Atom() (atom.ID, bool) {
	return atom.ID(v.bits), v.kind == ValueAtom
}

// Fact returns the fact-reference payload if the kind matches.
func (v Value) Fact() (ID, bool) {
	return ID(v.bits), v.kind == ValueFact
}

func (v Value) String() string {
	switch v.kind {
	case ValueNone:
		return "_"
	case ValueNumber:
		return fmt.Sprintf("%d", int64(v.bits))
	case ValueSpan:
		s := span.Packed(v.bits).Unpack()
		return fmt.Sprintf("[%d,%d)", s.Start, s.End)
	case ValueAtom:
		return fmt.Sprintf("atom:%d", v.bits)
	case ValueFact:
		return fmt.Sprintf("fact:%d", v.bits)
	}
	return "?"
}

// Raw exposes the value's tag and payload bits for snapshot writers.
func (v Value) Raw() (ValueKind, uint64) {
	return v.kind, v.bits
}

// FromRaw rebuilds a value from snapshot parts.
func FromRaw(kind ValueKind, bits uint64) Value {
	return Value{kind: kind, bits: bits}
}
