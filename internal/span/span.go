// Package span provides half-open byte ranges packed into a single machine
// word. Spans are the subject of every token and fact in the index; they are
// immutable value types with no ownership concerns.
package span

// Span is a half-open byte range [Start, End) in source text.
// Start <= End always holds for spans built through New.
type Span struct {
	Start uint32
	End   uint32
}

// Packed is a Span packed into 64 bits for embedding in fixed-size records.
// Start occupies the high 32 bits so that packed values sort by Start first.
type Packed uint64

// New returns the span [start, end). If start > end the result is the
// zero-length span at start; callers are expected to validate upstream, so
// construction never errors.
func New(start, end uint32) Span {
	if start > end {
		return Span{Start: start, End: start}
	}
	return Span{Start: start, End: end}
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool {
	return s.Start == s.End
}

// Len returns the number of bytes the span covers.
func (s Span) Len() uint32 {
	return s.End - s.Start
}

// Contains reports whether pos falls inside the span (half-open).
func (s Span) Contains(pos uint32) bool {
	return pos >= s.Start && pos < s.End
}

// ContainsRange reports whether other lies entirely within s.
// Every span contains the empty span positioned inside it.
func (s Span) ContainsRange(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Overlaps reports whether the two spans share at least one byte.
// Symmetric: a.Overlaps(b) == b.Overlaps(a). Empty spans overlap nothing.
func (s Span) Overlaps(other Span) bool {
	return max(s.Start, other.Start) < min(s.End, other.End)
}

// Merge returns the smallest span containing both s and other. Total: it
// always succeeds, covering the gap when the spans are disjoint.
func (s Span) Merge(other Span) Span {
	return Span{
		Start: min(s.Start, other.Start),
		End:   max(s.End, other.End),
	}
}

// Intersect returns the overlapping region of s and other. The second
// result is false iff the spans are disjoint, in which case the span is
// the zero value.
func (s Span) Intersect(other Span) (Span, bool) {
	if !s.Overlaps(other) {
		return Span{}, false
	}
	return Span{
		Start: max(s.Start, other.Start),
		End:   min(s.End, other.End),
	}, true
}

// Pack encodes the span into 64 bits. Bit-exact: Unpack(Pack(s)) == s for
// all 32-bit start/end pairs.
func (s Span) Pack() Packed {
	return Packed(uint64(s.Start)<<32 | uint64(s.End))
}

// Unpack decodes a packed span.
func (p Packed) Unpack() Span {
	return Span{
		Start: uint32(p >> 32),
		End:   uint32(p),
	}
}

// Start returns the packed span's start offset without unpacking.
func (p Packed) Start() uint32 {
	return uint32(p >> 32)
}

// End returns the packed span's end offset without unpacking.
func (p Packed) End() uint32 {
	return uint32(p)
}

// Overlaps reports overlap between two packed spans without unpacking.
func (p Packed) Overlaps(q Packed) bool {
	return p.Unpack().Overlaps(q.Unpack())
}
