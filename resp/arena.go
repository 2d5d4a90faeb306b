package resp

const (
	// arenaBlockSize is the size of each backing block. Requests larger than
	// a block get a dedicated block of exactly the requested size.
	arenaBlockSize = 4096

	// nodeSlabSize is the number of Value nodes allocated per slab.
	nodeSlabSize = 32
)

// Arena is a bump allocator that owns the byte payloads and node storage of
// the Value trees built from it. There is no per-object free: Reset (or
// dropping the Arena) releases everything at once.
//
// An Arena must not be shared across concurrent decode or build operations.
type Arena struct {
	blocks [][]byte
	free   []byte  // unused tail of the last block
	nodes  []Value // current node slab; grows up to its capacity, never reallocated
}

// NewArena returns an empty arena. Backing storage is allocated lazily on
// the first Alloc or NewValue call.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc returns a zeroed slice of exactly n bytes owned by the arena.
// The slice has capacity n, so appending to it never bleeds into storage
// handed out by later Alloc calls.
func (a *Arena) Alloc(n int) []byte {
	if n == 0 {
		return nil
	}
	if n > len(a.free) {
		a.grow(n)
	}
	buf := a.free[:n:n]
	a.free = a.free[n:]
	return buf
}

// copyBytes places a copy of b in the arena.
func (a *Arena) copyBytes(b []byte) []byte {
	buf := a.Alloc(len(b))
	copy(buf, b)
	return buf
}

// copyString places a copy of s in the arena.
func (a *Arena) copyString(s string) []byte {
	buf := a.Alloc(len(s))
	copy(buf, s)
	return buf
}

// NewValue returns a nil-kind Value node owned by the arena.
func (a *Arena) NewValue() *Value {
	vs := a.newValues(1)
	return &vs[0]
}

// newValues returns n contiguous nil-kind nodes. Used for array element
// storage so that siblings share one slab.
func (a *Arena) newValues(n int) []Value {
	if n == 0 {
		return nil
	}
	if len(a.nodes)+n > cap(a.nodes) {
		if n >= nodeSlabSize {
			// Oversized request: dedicated slab, current slab keeps filling.
			return make([]Value, n)
		}
		a.nodes = make([]Value, 0, nodeSlabSize)
	}
	vs := a.nodes[len(a.nodes) : len(a.nodes)+n : len(a.nodes)+n]
	a.nodes = a.nodes[:len(a.nodes)+n]
	return vs
}

func (a *Arena) grow(n int) {
	size := arenaBlockSize
	if n > size {
		size = n
	}
	block := make([]byte, size)
	a.blocks = append(a.blocks, block)
	a.free = block
}

// Reset drops all storage handed out so far. Every Value and byte slice
// previously obtained from the arena becomes invalid.
func (a *Arena) Reset() {
	a.blocks = nil
	a.free = nil
	a.nodes = nil
}
