package cellcore

// DefaultBuckets is the default bucket count of the store. it is a tunable,
// not a semantic constant; any positive value works.
const DefaultBuckets = 1229

// Handle is a generational index into the store's arena. a handle outlives
// the cell it names: once the slot is freed the generation moves on and the
// handle resolves to nothing instead of dangling.
type Handle struct {
	index uint32
	gen   uint32
}

type slot struct {
	cell *Cell
	gen  uint32
}

// node chains colliding keys inside a bucket
type node struct {
	key    string
	handle Handle
	next   *node
}

// Store maps positions to cells. keys are hashed into a fixed number of
// buckets with chaining; new nodes go to the head of their chain. cells
// live in an arena so that dependency edges can be held as handles.
//
// the store does not deduplicate on create: callers find before they create.
type Store struct {
	buckets []*node
	slots   []slot
	free    []uint32
	count   int
}

// NewStore creates an empty store with the given bucket count
func NewStore(buckets int) *Store {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	return &Store{
		buckets: make([]*node, buckets),
	}
}

// create allocates a new cell at pos holding text as its original input
func (s *Store) create(pos Position, text string) (*Cell, Handle) {
	cell := &Cell{
		Position:      pos,
		OriginalInput: text,
		state:         unvisited,
	}

	var h Handle
	if n := len(s.free); n > 0 {
		h.index = s.free[n-1]
		s.free = s.free[:n-1]
		h.gen = s.slots[h.index].gen
		s.slots[h.index].cell = cell
	} else {
		h.index = uint32(len(s.slots))
		s.slots = append(s.slots, slot{cell: cell})
	}

	key := pos.Key()
	idx := hashKey(key, len(s.buckets))
	s.buckets[idx] = &node{key: key, handle: h, next: s.buckets[idx]}
	s.count++

	return cell, h
}

// findHandle returns the handle for pos without allocating
func (s *Store) findHandle(pos Position) (Handle, bool) {
	key := pos.Key()
	for n := s.buckets[hashKey(key, len(s.buckets))]; n != nil; n = n.next {
		if n.key == key {
			return n.handle, true
		}
	}
	return Handle{}, false
}

// find returns the cell at pos or nil
func (s *Store) find(pos Position) *Cell {
	h, ok := s.findHandle(pos)
	if !ok {
		return nil
	}
	return s.resolve(h)
}

// resolve returns the cell a handle names, or nil if the slot was freed
func (s *Store) resolve(h Handle) *Cell {
	if int(h.index) >= len(s.slots) {
		return nil
	}
	sl := s.slots[h.index]
	if sl.gen != h.gen {
		return nil
	}
	return sl.cell
}

// clear drops the content, original input and dependents of the cell at pos
// but keeps the cell (and its handle) in the store. returns false if there
// is no cell at pos.
func (s *Store) clear(pos Position) bool {
	cell := s.find(pos)
	if cell == nil {
		return false
	}
	cell.Content = nil
	cell.Computed = 0
	cell.OriginalInput = ""
	cell.dependents = nil
	cell.state = unvisited
	return true
}

// remove unlinks the cell at pos from its chain and frees its slot
func (s *Store) remove(pos Position) bool {
	key := pos.Key()
	idx := hashKey(key, len(s.buckets))

	var prev *node
	for n := s.buckets[idx]; n != nil; n = n.next {
		if n.key != key {
			prev = n
			continue
		}
		if prev == nil {
			s.buckets[idx] = n.next
		} else {
			prev.next = n.next
		}

		sl := &s.slots[n.handle.index]
		sl.cell = nil
		sl.gen++
		s.free = append(s.free, n.handle.index)
		s.count--
		return true
	}
	return false
}

// destroyAll releases every cell and bucket, leaving an empty store
func (s *Store) destroyAll() {
	s.buckets = make([]*node, len(s.buckets))
	s.slots = nil
	s.free = nil
	s.count = 0
}

// forEach visits every cell in bucket order
func (s *Store) forEach(fn func(h Handle, cell *Cell)) {
	for _, head := range s.buckets {
		for n := head; n != nil; n = n.next {
			if cell := s.resolve(n.handle); cell != nil {
				fn(n.handle, cell)
			}
		}
	}
}

// Len returns the number of cells in the store
func (s *Store) Len() int {
	return s.count
}

// BucketCount returns the number of hash buckets
func (s *Store) BucketCount() int {
	return len(s.buckets)
}

// LongestChain returns the length of the longest bucket chain
func (s *Store) LongestChain() int {
	longest := 0
	for _, head := range s.buckets {
		length := 0
		for n := head; n != nil; n = n.next {
			length++
		}
		if length > longest {
			longest = length
		}
	}
	return longest
}
