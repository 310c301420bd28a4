// Package arena provides a scoped slab allocator for extraction scratch
// memory. A worker allocates freely while processing one file, then
// releases everything at once with Reset; nothing allocated from an arena
// may outlive the reset. Arenas are not safe for concurrent use — each
// worker owns its own.
package arena

// slabSize is the default backing block. Allocations larger than a slab
// get a dedicated block of exactly their size.
const slabSize = 64 * 1024

// Arena hands out byte slices carved from reusable slabs.
type Arena struct {
	slabs [][]byte
	cur   []byte // remaining free space in the active slab
	held  int    // bytes handed out since the last Reset
}

// New creates an arena with one pre-grown slab.
func New() *Arena {
	a := &Arena{}
	a.grow(slabSize)
	return a
}

func (a *Arena) grow(n int) {
	size := slabSize
	if n > size {
		size = n
	}
	slab := make([]byte, size)
	a.slabs = append(a.slabs, slab)
	a.cur = slab
}

// Alloc returns a zeroed slice of n bytes carved from the arena.
func (a *Arena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n > len(a.cur) {
		a.grow(n)
	}
	out := a.cur[:n:n]
	a.cur = a.cur[n:]
	a.held += n
	return out
}

// Copy duplicates b into arena storage.
func (a *Arena) Copy(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := a.Alloc(len(b))
	copy(out, b)
	return out
}

// CopyString duplicates s into arena storage.
func (a *Arena) CopyString(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	out := a.Alloc(len(s))
	copy(out, s)
	return out
}

// Held reports the bytes handed out since the last Reset.
func (a *Arena) Held() int {
	return a.held
}

// Reset releases every allocation at once. The first slab is retained and
// zeroed for reuse; oversized and overflow slabs are dropped so a single
// huge file does not pin memory for the arena's lifetime.
func (a *Arena) Reset() {
	first := a.slabs[0]
	if len(first) > slabSize {
		first = make([]byte, slabSize)
	}
	clear(first)
	a.slabs = a.slabs[:1]
	a.slabs[0] = first
	a.cur = first
	a.held = 0
}
