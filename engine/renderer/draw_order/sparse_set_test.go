package draw_order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddThenExists(t *testing.T) {
	s := NewSparseSet[uint32](0)
	assert.False(t, s.Exists(3))

	s.Add(3)
	assert.True(t, s.Exists(3))
	assert.False(t, s.Exists(2))
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, 0, s.GetIndexTo(3))
}

func TestAddIsIdempotent(t *testing.T) {
	s := NewSparseSet[uint32](4)
	s.Add(1)
	s.Add(1)
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, []uint32{1}, s.Dense())
}

func TestRemoveThenExists(t *testing.T) {
	s := NewSparseSet[uint32](0)
	s.Add(5)
	s.Add(9)
	s.Remove(5)

	assert.False(t, s.Exists(5))
	assert.True(t, s.Exists(9))
	assert.Equal(t, 0, s.GetIndexTo(9))

	s.Remove(5)
	assert.Equal(t, 1, s.Size())
}

func TestGrowthKeepsExistingKeys(t *testing.T) {
	s := NewSparseSet[uint32](2)
	s.Add(0)
	s.Add(1)
	require.Equal(t, 2, s.Capacity())

	s.Add(1000)
	assert.Equal(t, 1001, s.Capacity())
	for _, k := range []uint32{0, 1, 1000} {
		assert.True(t, s.Exists(k), "key %d", k)
	}
	assert.False(t, s.Exists(999))
	assert.Equal(t, []uint32{0, 1, 1000}, s.Dense())
}

func TestStaleSparseEntryIsNotAMember(t *testing.T) {
	s := NewSparseSet[uint32](0)
	s.Add(7)
	s.Add(3)
	s.Remove(7)

	// sparse[7] still points at position 0, which now holds 3
	assert.False(t, s.Exists(7))
	_, ok := s.TryGetIndexTo(7)
	assert.False(t, ok)
}

func TestSwapRemoveMovesLastIntoHole(t *testing.T) {
	s := NewSparseSet[uint32](0)
	for _, k := range []uint32{10, 20, 30, 40} {
		s.Add(k)
	}
	s.Remove(20)

	assert.Equal(t, []uint32{10, 40, 30}, s.Dense())
	assert.Equal(t, 1, s.GetIndexTo(40))
}

func TestKeepOrderRemove(t *testing.T) {
	s := NewSparseSet[uint32](0)
	for _, k := range []uint32{10, 20, 30, 40} {
		s.Add(k)
	}
	s.KeepOrderRemove(20)

	assert.Equal(t, []uint32{10, 30, 40}, s.Dense())
	assert.Equal(t, 1, s.GetIndexTo(30))
	assert.Equal(t, 2, s.GetIndexTo(40))
	assert.False(t, s.Exists(20))
}

func TestGetIndexToMissingKeyPanics(t *testing.T) {
	s := NewSparseSet[uint32](0)
	assert.Panics(t, func() { s.GetIndexTo(1) })

	s.Add(1)
	s.Remove(1)
	assert.Panics(t, func() { s.GetIndexTo(1) })
}

func TestClearKeepsCapacity(t *testing.T) {
	s := NewSparseSet[uint8](0)
	s.Add(200)
	s.Clear()

	assert.Equal(t, 0, s.Size())
	assert.False(t, s.Exists(200))
	assert.Equal(t, 201, s.Capacity())

	s.Add(200)
	assert.Equal(t, 0, s.GetIndexTo(200))
}
