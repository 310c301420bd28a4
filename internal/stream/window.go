package stream

import (
	"io"
)

// DefaultWindowSize is the lookahead budget lexers get by default: enough
// for any plausible token, small enough that arbitrarily large inputs
// stream in bounded memory.
const DefaultWindowSize = 64 * 1024

// Window is a fixed-capacity sliding buffer over an io.Reader. Lexers use
// it as their bounded lookahead: bytes stay addressable from the window
// start until the lexer releases them, and a single token larger than the
// capacity surfaces CapacityExceeded rather than growing the buffer.
type Window struct {
	r    io.Reader
	buf  []byte
	base uint32 // input offset of buf[0]
	n    int    // valid bytes in buf
	eof  bool
}

// NewWindow creates a window of the given capacity over r. capacity <= 0
// uses DefaultWindowSize.
func NewWindow(r io.Reader, capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{r: r, buf: make([]byte, capacity)}
}

// Base returns the input offset of the first retained byte.
func (w *Window) Base() uint32 {
	return w.base
}

// End returns the input offset one past the last buffered byte.
func (w *Window) End() uint32 {
	return w.base + uint32(w.n)
}

// EOF reports whether the underlying reader is exhausted and every buffered
// byte has been read into the window.
func (w *Window) EOF() bool {
	return w.eof
}

// fill reads from the underlying reader until the buffer is full or EOF.
func (w *Window) fill() error {
	for w.n < len(w.buf) && !w.eof {
		m, err := w.r.Read(w.buf[w.n:])
		w.n += m
		if err == io.EOF {
			w.eof = true
			return nil
		}
		if err != nil {
			return NewError(Corrupt, "window read failed", err)
		}
		if m == 0 {
			return nil
		}
	}
	return nil
}

// Byte returns the byte at absolute input offset off. The second result is
// false at end of input. Asking for an offset before the window base is a
// lexer bug and returns Corrupt; asking for an offset that would require
// retaining more than the window capacity returns CapacityExceeded.
func (w *Window) Byte(off uint32) (byte, bool, error) {
	if off < w.base {
		return 0, false, Errorf(Corrupt, "offset %d before window base %d", off, w.base)
	}
	if off >= w.base+uint32(len(w.buf)) {
		return 0, false, Errorf(CapacityExceeded,
			"offset %d exceeds %d-byte lookahead window at base %d", off, len(w.buf), w.base)
	}
	if off >= w.End() {
		if err := w.fill(); err != nil {
			return 0, false, err
		}
		if off >= w.End() {
			if w.eof {
				return 0, false, nil
			}
			return 0, false, Errorf(CapacityExceeded,
				"offset %d exceeds filled window [%d,%d)", off, w.base, w.End())
		}
	}
	return w.buf[off-w.base], true, nil
}

// Bytes returns the input bytes in [from, to). The slice aliases the window
// and is only valid until the next Release; callers that keep text must
// copy it out (typically by interning).
func (w *Window) Bytes(from, to uint32) ([]byte, error) {
	if from > to || from < w.base {
		return nil, Errorf(Corrupt, "bad window range [%d,%d) at base %d", from, to, w.base)
	}
	if to > w.base+uint32(len(w.buf)) {
		return nil, Errorf(CapacityExceeded,
			"range [%d,%d) exceeds %d-byte lookahead window", from, to, len(w.buf))
	}
	for to > w.End() {
		if w.eof {
			return nil, Errorf(Corrupt, "range [%d,%d) past end of input %d", from, to, w.End())
		}
		if err := w.fill(); err != nil {
			return nil, err
		}
	}
	return w.buf[from-w.base : to-w.base], nil
}

// Release drops all bytes before upTo, reclaiming window capacity. The
// lexer calls this after emitting a token; released offsets can never be
// read again.
func (w *Window) Release(upTo uint32) {
	if upTo <= w.base {
		return
	}
	if upTo > w.End() {
		upTo = w.End()
	}
	drop := int(upTo - w.base)
	copy(w.buf, w.buf[drop:w.n])
	w.n -= drop
	w.base = upTo
}
