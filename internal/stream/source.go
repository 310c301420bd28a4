package stream

import (
	"io"
	"os"
)

// FromSlice returns a stream over an in-memory slice. The slice is not
// copied; the caller must not mutate it while the stream is live.
func FromSlice[T any](items []T) *Stream[T] {
	i := 0
	return New(func() (T, bool, error) {
		var zero T
		if i >= len(items) {
			return zero, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	})
}

// FromFunc returns a stream driven by a generator callback. The callback is
// pulled exactly once per Next and never after it reports EOF.
func FromFunc[T any](pull func() (T, bool, error)) *Stream[T] {
	return New(pull)
}

// DefaultChunkSize is the read size used by reader-backed streams.
const DefaultChunkSize = 64 * 1024

// FromReader returns a stream of byte chunks read from r. Each pull reads
// at most chunkSize bytes; the returned chunk is owned by the consumer.
// If chunkSize <= 0 the default is used.
func FromReader(r io.Reader, chunkSize int) *Stream[[]byte] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return New(func() ([]byte, bool, error) {
		buf := make([]byte, chunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			return buf[:n], true, nil
		}
		if err == io.EOF || err == nil {
			return nil, false, nil
		}
		return nil, false, NewError(Corrupt, "read failed", err)
	})
}

// FromFile opens path and streams its contents in chunks. The file is
// closed when the stream is closed or exhausted.
func FromFile(path string, chunkSize int) (*Stream[[]byte], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	inner := FromReader(f, chunkSize)
	return NewWithClose(func() ([]byte, bool, error) {
		chunk, ok, err := inner.Next()
		if err != nil || !ok {
			f.Close()
		}
		return chunk, ok, err
	}, f.Close), nil
}
