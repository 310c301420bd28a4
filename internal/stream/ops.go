package stream

// Map returns a stream applying f to each element of s. A mapping error
// terminates the stream.
func Map[A, B any](s *Stream[A], f func(A) (B, error)) *Stream[B] {
	return NewWithClose(func() (B, bool, error) {
		var zero B
		v, ok, err := s.Next()
		if err != nil || !ok {
			return zero, false, err
		}
		m, err := f(v)
		if err != nil {
			return zero, false, err
		}
		return m, true, nil
	}, s.Close)
}

// Filter returns a stream of the elements of s for which pred is true.
func Filter[T any](s *Stream[T], pred func(T) bool) *Stream[T] {
	return NewWithClose(func() (T, bool, error) {
		for {
			v, ok, err := s.Next()
			if err != nil || !ok {
				var zero T
				return zero, false, err
			}
			if pred(v) {
				return v, true, nil
			}
		}
	}, s.Close)
}

// Batch groups elements of s into slices of up to n. The final batch may be
// short; an empty stream yields no batches. n < 1 is treated as 1.
func Batch[T any](s *Stream[T], n int) *Stream[[]T] {
	if n < 1 {
		n = 1
	}
	return NewWithClose(func() ([]T, bool, error) {
		batch := make([]T, 0, n)
		for len(batch) < n {
			v, ok, err := s.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			batch = append(batch, v)
		}
		if len(batch) == 0 {
			return nil, false, nil
		}
		return batch, true, nil
	}, s.Close)
}

// Merge interleaves two streams, alternating pulls while both have
// elements. Order across sources is interleaving order, not sorted; the
// relative order within each source is preserved.
func Merge[T any](a, b *Stream[T]) *Stream[T] {
	fromA := true
	return NewWithClose(func() (T, bool, error) {
		first, second := a, b
		if !fromA {
			first, second = b, a
		}
		fromA = !fromA

		v, ok, err := first.Next()
		if err != nil {
			var zero T
			return zero, false, err
		}
		if ok {
			return v, true, nil
		}
		return second.Next()
	}, func() error {
		errA := a.Close()
		errB := b.Close()
		if errA != nil {
			return errA
		}
		return errB
	})
}

// teeState is the buffer shared by the two views a Tee produces. Elements
// stay buffered until both views have consumed them, so the slower consumer
// bounds memory growth. That is a documented resource caveat of Tee, not a
// bug: callers that let one view fall arbitrarily far behind pay for it.
type teeState[T any] struct {
	src  *Stream[T]
	buf  []T
	base int // absolute index of buf[0]
	pos  [2]int
	done bool
	err  error
}

func (t *teeState[T]) next(view int) (T, bool, error) {
	var zero T
	abs := t.pos[view]

	if abs >= t.base+len(t.buf) {
		if t.err != nil {
			return zero, false, t.err
		}
		if t.done {
			return zero, false, nil
		}
		v, ok, err := t.src.Next()
		if err != nil {
			// Latch so the other view surfaces the error too instead of
			// seeing a clean EOF.
			t.err = err
			t.done = true
			return zero, false, err
		}
		if !ok {
			t.done = true
			return zero, false, nil
		}
		t.buf = append(t.buf, v)
	}

	v := t.buf[abs-t.base]
	t.pos[view] = abs + 1
	t.release()
	return v, true, nil
}

// release drops buffered elements both views have passed.
func (t *teeState[T]) release() {
	minPos := min(t.pos[0], t.pos[1])
	if drop := minPos - t.base; drop > 0 {
		t.buf = append(t.buf[:0], t.buf[drop:]...)
		t.base = minPos
	}
}

// Tee splits s into two independently advancing views over a shared
// buffer. Both views observe the same elements in the same order. Closing
// one view only abandons that view; the source is closed when both are.
func Tee[T any](s *Stream[T]) (*Stream[T], *Stream[T]) {
	state := &teeState[T]{src: s}
	closed := 0
	closeView := func(view int) func() error {
		return func() error {
			// A closed view no longer holds back the shared buffer.
			state.pos[view] = int(^uint(0) >> 1)
			state.release()
			closed++
			if closed == 2 {
				return s.Close()
			}
			return nil
		}
	}
	left := NewWithClose(func() (T, bool, error) { return state.next(0) }, closeView(0))
	right := NewWithClose(func() (T, bool, error) { return state.next(1) }, closeView(1))
	return left, right
}
