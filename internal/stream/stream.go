// Package stream provides the pull-based sequence abstraction everything in
// the index produces and consumes. Streams are single-consumer and strictly
// cooperative: nothing advances until the consumer calls Next, and no
// operator buffers more than it needs to honor its own contract.
package stream

// Stream is a pull-based, single-consumer sequence of T.
//
// Next returns the next element, or ok=false once the stream is exhausted.
// EOF is a terminal state: every call after the first ok=false also returns
// ok=false with a nil error. Errors are terminal and sticky: once Next
// reports an error, every later Next reports the same error, and the pull
// function is never called again.
type Stream[T any] struct {
	pull    func() (T, bool, error)
	closeFn func() error

	peeked  T
	hasPeek bool
	done    bool
	err     error
}

// New builds a stream from a pull function. pull signals EOF by returning
// ok=false; it is never called again afterwards.
func New[T any](pull func() (T, bool, error)) *Stream[T] {
	return &Stream[T]{pull: pull}
}

// NewWithClose builds a stream whose Close releases an underlying resource.
func NewWithClose[T any](pull func() (T, bool, error), closeFn func() error) *Stream[T] {
	return &Stream[T]{pull: pull, closeFn: closeFn}
}

// Next advances the stream by one element.
func (s *Stream[T]) Next() (T, bool, error) {
	var zero T
	if s.err != nil {
		return zero, false, s.err
	}
	if s.hasPeek {
		v := s.peeked
		s.peeked = zero
		s.hasPeek = false
		return v, true, nil
	}
	if s.done {
		return zero, false, nil
	}
	v, ok, err := s.pull()
	if err != nil {
		s.err = err
		s.done = true
		return zero, false, err
	}
	if !ok {
		s.done = true
		return zero, false, nil
	}
	return v, true, nil
}

// Peek returns the next element without consuming it. A pull error
// encountered while peeking is held and surfaced by the following Next.
func (s *Stream[T]) Peek() (T, bool) {
	var zero T
	if s.hasPeek {
		return s.peeked, true
	}
	if s.done || s.err != nil {
		return zero, false
	}
	v, ok, err := s.pull()
	if err != nil {
		s.err = err
		return zero, false
	}
	if !ok {
		s.done = true
		return zero, false
	}
	s.peeked = v
	s.hasPeek = true
	return v, true
}

// Skip discards up to n elements, stopping early at EOF.
func (s *Stream[T]) Skip(n int) error {
	for i := 0; i < n; i++ {
		_, ok, err := s.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}

// Close releases any underlying resource and moves the stream to its
// terminal state. Closing twice is harmless.
func (s *Stream[T]) Close() error {
	s.done = true
	s.hasPeek = false
	if s.closeFn == nil {
		return nil
	}
	fn := s.closeFn
	s.closeFn = nil
	return fn()
}

// Collect drains the stream into a slice. Intended for tests and small
// result sets; large results should stay streaming.
func Collect[T any](s *Stream[T]) ([]T, error) {
	var out []T
	for {
		v, ok, err := s.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
