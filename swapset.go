package opencubes

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// SwapSet is a hash-set of CubePtrs keyed by the content of the cube
// each points to, dereferenced through a single owning CubeStorage.
// Grounded on original_source/cpp/include/cubeSwapSet.hpp's
// CubePtrHash/CubePtrEqual stateful functors; realized in Go as a
// hand-rolled bucket map rather than a library hash-set, since the
// dereferencing equality/hash (reading through a CubeStorage, possibly
// via a pending staged slot) is not expressible with Go's built-in map
// key constraints.
type SwapSet struct {
	mu      sync.RWMutex
	storage *CubeStorage
	buckets map[uint64][]CubePtr
	count   int
}

// NewSwapSet constructs an empty set backed by storage. The set's
// lifetime must not exceed storage's.
func NewSwapSet(storage *CubeStorage) *SwapSet {
	return &SwapSet{storage: storage, buckets: make(map[uint64][]CubePtr)}
}

// Storage returns the owning CubeStorage.
func (s *SwapSet) Storage() *CubeStorage { return s.storage }

func hashCube(c Cube) uint64 {
	h := xxhash.New()
	var b [3]byte
	for _, p := range c {
		b[0], b[1], b[2] = byte(p.X), byte(p.Y), byte(p.Z)
		h.Write(b[:])
	}
	return h.Sum64()
}

func (s *SwapSet) equalPtrs(r *CubeReader, a, b CubePtr) (bool, error) {
	ca, err := s.storage.Read(r, a)
	if err != nil {
		return false, err
	}
	cb, err := s.storage.Read(r, b)
	if err != nil {
		return false, err
	}
	if len(ca) != len(cb) {
		return false, nil
	}
	for i := range ca {
		if ca[i] != cb[i] {
			return false, nil
		}
	}
	return true, nil
}

// Insert runs the set's insert protocol against candidate: stage it in
// the storage, take the set's exclusive lock, accept it if no equal key
// is already present (committing the staged slot), or reject and drop
// it otherwise. r is the calling goroutine's own read-cache handle.
//
// Returns the accepted (or pre-existing, on rejection) CubePtr and
// whether this call was the one that inserted it.
func (s *SwapSet) Insert(r *CubeReader, candidate Cube) (CubePtr, bool, error) {
	ptr := s.storage.Local(candidate)
	h := hashCube(candidate)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.buckets[h] {
		eq, err := s.equalPtrs(r, ptr, existing)
		if err != nil {
			s.storage.Drop(&ptr)
			return CubePtr{}, false, err
		}
		if eq {
			s.storage.Drop(&ptr)
			return existing, false, nil
		}
	}

	if err := s.storage.Commit(&ptr); err != nil {
		return CubePtr{}, false, err
	}
	s.buckets[h] = append(s.buckets[h], ptr)
	s.count++
	return ptr, true, nil
}

// Size returns the number of distinct cubes in the set.
func (s *SwapSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Each calls fn once per stored CubePtr, under the set's shared lock.
func (s *SwapSet) Each(fn func(CubePtr)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bucket := range s.buckets {
		for _, ptr := range bucket {
			fn(ptr)
		}
	}
}
