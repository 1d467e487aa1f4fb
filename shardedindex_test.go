package opencubes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShardedIndexInsertRoutesByShape(t *testing.T) {
	idx := NewShardedIndex(t.TempDir(), 3)
	idx.Init()
	r := NewCubeReader()

	cube, shape := Normalize(Cube{{0, 0, 0}, {0, 0, 1}, {0, 1, 0}})
	_, inserted, err := idx.Insert(r, cube, shape)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, 1, idx.Size())

	_, inserted, err = idx.Insert(r, cube, shape)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, 1, idx.Size())
}

func TestShardedIndexAtPanicsOnUnregisteredShape(t *testing.T) {
	idx := NewShardedIndex(t.TempDir(), 3)
	idx.Init()

	require.Panics(t, func() {
		idx.At(Shape{100, 100, 100})
	})
}

func TestShardedIndexShapesSorted(t *testing.T) {
	idx := NewShardedIndex(t.TempDir(), 4)
	idx.Init()

	shapes := idx.Shapes()
	require.NotEmpty(t, shapes)
	for i := 1; i < len(shapes); i++ {
		require.True(t, shapes[i-1].Less(shapes[i]))
	}
}

func TestSingleShapeViewRestrictsToOneShape(t *testing.T) {
	idx := NewShardedIndex(t.TempDir(), 3)
	idx.Init()
	r := NewCubeReader()

	cube, shape := Normalize(Cube{{0, 0, 0}, {0, 0, 1}, {0, 1, 0}})
	_, _, err := idx.Insert(r, cube, shape)
	require.NoError(t, err)

	view := idx.SingleShape(shape)
	require.Equal(t, []Shape{shape}, view.Shapes())
	require.Equal(t, idx.Size(), view.Size())
}
