package span

import (
	"math/rand"
	"testing"
)

func TestNewClampsInvalidRange(t *testing.T) {
	s := New(10, 4)
	if s.Start != 10 || s.End != 10 {
		t.Errorf("expected zero-length span at 10, got [%d,%d)", s.Start, s.End)
	}
	if !s.Empty() {
		t.Error("clamped span should be empty")
	}
}

func TestContains(t *testing.T) {
	s := New(5, 10)

	tests := []struct {
		pos  uint32
		want bool
	}{
		{4, false},
		{5, true}, // inclusive start
		{9, true},
		{10, false}, // exclusive end
		{100, false},
	}

	for _, tt := range tests {
		if got := s.Contains(tt.pos); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestOverlapsSymmetric(t *testing.T) {
	tests := []struct {
		a, b Span
		want bool
	}{
		{New(0, 5), New(5, 10), false}, // adjacent, half-open
		{New(0, 5), New(4, 10), true},
		{New(0, 10), New(3, 4), true}, // containment
		{New(0, 0), New(0, 10), false}, // empty overlaps nothing
		{New(3, 3), New(0, 10), false},
		{New(7, 9), New(7, 9), true}, // identical
	}

	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.want {
			t.Errorf("[%d,%d).Overlaps([%d,%d)) = %v, want %v",
				tt.a.Start, tt.a.End, tt.b.Start, tt.b.End, got, tt.want)
		}
		if tt.a.Overlaps(tt.b) != tt.b.Overlaps(tt.a) {
			t.Errorf("Overlaps not symmetric for [%d,%d) and [%d,%d)",
				tt.a.Start, tt.a.End, tt.b.Start, tt.b.End)
		}
	}
}

func TestMergeContainsBoth(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		a := randomSpan(rng)
		b := randomSpan(rng)
		m := a.Merge(b)

		if !m.ContainsRange(a) || !m.ContainsRange(b) {
			t.Fatalf("merge of [%d,%d) and [%d,%d) = [%d,%d) does not contain both",
				a.Start, a.End, b.Start, b.End, m.Start, m.End)
		}
	}
}

func TestMergeDisjointCoversGap(t *testing.T) {
	m := New(0, 2).Merge(New(8, 10))
	if m.Start != 0 || m.End != 10 {
		t.Errorf("expected [0,10), got [%d,%d)", m.Start, m.End)
	}
}

func TestIntersectMatchesOverlaps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 1000; i++ {
		a := randomSpan(rng)
		b := randomSpan(rng)

		got, ok := a.Intersect(b)
		if ok != a.Overlaps(b) {
			t.Fatalf("Intersect ok=%v but Overlaps=%v for [%d,%d) [%d,%d)",
				ok, a.Overlaps(b), a.Start, a.End, b.Start, b.End)
		}
		if ok {
			if !a.ContainsRange(got) || !b.ContainsRange(got) {
				t.Fatalf("intersection [%d,%d) not contained in both inputs", got.Start, got.End)
			}
		} else if got != (Span{}) {
			t.Fatal("disjoint intersect should return zero span")
		}
	}
}

func TestPackRoundTrip(t *testing.T) {
	cases := []Span{
		{0, 0},
		{0, 1},
		{^uint32(0), ^uint32(0)},
		{0, ^uint32(0)},
		{1 << 31, 1<<31 + 7},
	}

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 10000; i++ {
		cases = append(cases, randomSpan(rng))
	}

	for _, s := range cases {
		if got := s.Pack().Unpack(); got != s {
			t.Fatalf("round trip failed: [%d,%d) -> %#x -> [%d,%d)",
				s.Start, s.End, uint64(s.Pack()), got.Start, got.End)
		}
	}
}

func TestPackedSortsByStart(t *testing.T) {
	a := New(1, 100).Pack()
	b := New(2, 3).Pack()
	if a >= b {
		t.Error("packed spans should order by start first")
	}
}

func TestPackedAccessors(t *testing.T) {
	p := New(17, 42).Pack()
	if p.Start() != 17 || p.End() != 42 {
		t.Errorf("accessors returned [%d,%d), want [17,42)", p.Start(), p.End())
	}
}

func randomSpan(rng *rand.Rand) Span {
	a := rng.Uint32()
	b := rng.Uint32()
	if a > b {
		a, b = b, a
	}
	return Span{Start: a, End: b}
}
