package opencubes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCubeStorageCommitAndRead(t *testing.T) {
	s := NewCubeStorage(t.TempDir(), 3)
	r := NewCubeReader()

	cube := Cube{{0, 0, 0}, {0, 0, 1}, {0, 1, 0}}
	ptr := s.Local(cube)
	require.True(t, ptr.pending())

	require.NoError(t, s.Commit(&ptr))
	require.False(t, ptr.pending())

	got, err := s.Read(r, ptr)
	require.NoError(t, err)
	require.Equal(t, cube, got)
}

func TestCubeStorageReadCacheHit(t *testing.T) {
	s := NewCubeStorage(t.TempDir(), 2)
	r := NewCubeReader()

	ptr := s.Local(Cube{{1, 1, 1}, {2, 2, 2}})
	require.NoError(t, s.Commit(&ptr))

	first, err := s.Read(r, ptr)
	require.NoError(t, err)
	second, ok := r.lookup(s, ptr.Offset, ptr.Version)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestCubeStorageDiscardInvalidatesPtr(t *testing.T) {
	s := NewCubeStorage(t.TempDir(), 2)
	r := NewCubeReader()

	ptr := s.Local(Cube{{0, 0, 0}, {0, 0, 1}})
	require.NoError(t, s.Commit(&ptr))

	require.NoError(t, s.Discard())

	_, err := s.Read(r, ptr)
	require.ErrorIs(t, err, ErrStale)
}

func TestCubeStorageCommitRejectsWrongSize(t *testing.T) {
	s := NewCubeStorage(t.TempDir(), 4)
	ptr := s.Local(Cube{{0, 0, 0}}) // one coord, but storage wants 4
	err := s.Commit(&ptr)
	require.ErrorIs(t, err, ErrInvariant)
}

func TestCubeStorageDropDiscardsStagedSlot(t *testing.T) {
	s := NewCubeStorage(t.TempDir(), 2)
	ptr := s.Local(Cube{{0, 0, 0}, {1, 0, 0}})
	s.Drop(&ptr)
	require.False(t, ptr.pending())
	require.Zero(t, s.Len())
}

func TestCubeStorageAppendsSequentially(t *testing.T) {
	s := NewCubeStorage(t.TempDir(), 1)
	var offsets []int64
	for i := 0; i < 5; i++ {
		ptr := s.Local(Cube{{int8(i), 0, 0}})
		require.NoError(t, s.Commit(&ptr))
		offsets = append(offsets, ptr.Offset)
	}
	for i := 1; i < len(offsets); i++ {
		require.Equal(t, offsets[i-1]+s.RecordSize(), offsets[i])
	}
	require.Equal(t, int64(5), s.Len())
}
