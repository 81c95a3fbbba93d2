package draw_order

import (
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"
)

// sparseSet is the implementation of the SparseSet interface.
type sparseSet[T constraints.Unsigned] struct {
	// dense holds the stored keys contiguously.
	dense []T

	// sparse maps a key to its position in dense. Entries for keys that are not stored
	// may hold stale positions, so membership is always confirmed against dense.
	sparse []int
}

// SparseSet is a bidirectional index between unsigned keys and compact dense positions.
// Membership, insertion and swap removal are O(1). The dense enumeration order is undefined
// once Remove has been called.
//
// A SparseSet is not safe for concurrent use.
type SparseSet[T constraints.Unsigned] interface {
	// Add stores key. The sparse array grows to key+1 entries when key is beyond the current
	// capacity; it never shrinks. Adding a key that is already stored is a no-op.
	//
	// Parameters:
	//   - key: the key to store
	Add(key T)

	// Exists reports whether key is stored.
	//
	// Parameters:
	//   - key: the key to test
	//
	// Returns:
	//   - bool: true if key is stored
	Exists(key T) bool

	// Remove deletes key by moving the last dense element into its position.
	// Removing a key that is not stored is a no-op.
	//
	// Parameters:
	//   - key: the key to delete
	Remove(key T)

	// KeepOrderRemove deletes key by shifting every later dense element down by one,
	// preserving the relative order of the remaining keys.
	//
	// Parameters:
	//   - key: the key to delete
	KeepOrderRemove(key T)

	// GetIndexTo returns the dense position of key.
	// Panics if key is not stored.
	//
	// Parameters:
	//   - key: a stored key
	//
	// Returns:
	//   - int: the dense position of key
	GetIndexTo(key T) int

	// TryGetIndexTo returns the dense position of key and whether key is stored.
	//
	// Parameters:
	//   - key: the key to look up
	//
	// Returns:
	//   - int: the dense position of key, or -1
	//   - bool: true if key is stored
	TryGetIndexTo(key T) (int, bool)

	// Clear removes every key while keeping the allocated capacity.
	Clear()

	// Size returns the number of stored keys.
	//
	// Returns:
	//   - int: the stored key count
	Size() int

	// Capacity returns the length of the sparse array, one more than the largest key ever added.
	//
	// Returns:
	//   - int: the sparse capacity
	Capacity() int

	// Dense returns the stored keys in dense order. The returned slice aliases internal storage
	// and is only valid until the next mutation.
	//
	// Returns:
	//   - []T: the stored keys
	Dense() []T
}

var _ SparseSet[uint32] = &sparseSet[uint32]{}

// NewSparseSet creates an empty SparseSet with room for keys below initialCapacity.
//
// Parameters:
//   - initialCapacity: the initial sparse capacity, may be zero
//
// Returns:
//   - SparseSet[T]: the empty set
func NewSparseSet[T constraints.Unsigned](initialCapacity int) SparseSet[T] {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	return &sparseSet[T]{
		dense:  make([]T, 0, initialCapacity),
		sparse: make([]int, initialCapacity),
	}
}

func (s *sparseSet[T]) Add(key T) {
	if s.Exists(key) {
		return
	}
	if uint64(key) >= uint64(len(s.sparse)) {
		s.sparse = slices.Grow(s.sparse, int(key)+1-len(s.sparse))
		s.sparse = s.sparse[:int(key)+1]
	}
	s.sparse[key] = len(s.dense)
	s.dense = append(s.dense, key)
}

func (s *sparseSet[T]) Exists(key T) bool {
	if uint64(key) >= uint64(len(s.sparse)) {
		return false
	}
	idx := s.sparse[key]
	return idx >= 0 && idx < len(s.dense) && s.dense[idx] == key
}

func (s *sparseSet[T]) Remove(key T) {
	if !s.Exists(key) {
		return
	}
	idx := s.sparse[key]
	last := s.dense[len(s.dense)-1]
	s.dense[idx] = last
	s.sparse[last] = idx
	s.dense = s.dense[:len(s.dense)-1]
}

func (s *sparseSet[T]) KeepOrderRemove(key T) {
	if !s.Exists(key) {
		return
	}
	idx := s.sparse[key]
	s.dense = slices.Delete(s.dense, idx, idx+1)
	for i := idx; i < len(s.dense); i++ {
		s.sparse[s.dense[i]] = i
	}
}

func (s *sparseSet[T]) GetIndexTo(key T) int {
	idx, ok := s.TryGetIndexTo(key)
	if !ok {
		panic(fmt.Sprintf("draw_order: key %d is not in the set", key))
	}
	return idx
}

func (s *sparseSet[T]) TryGetIndexTo(key T) (int, bool) {
	if !s.Exists(key) {
		return -1, false
	}
	return s.sparse[key], true
}

func (s *sparseSet[T]) Clear() {
	s.dense = s.dense[:0]
}

func (s *sparseSet[T]) Size() int {
	return len(s.dense)
}

func (s *sparseSet[T]) Capacity() int {
	return len(s.sparse)
}

func (s *sparseSet[T]) Dense() []T {
	return s.dense
}
