package opencubes

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func sortedCopy(c Cube) Cube {
	out := make(Cube, len(c))
	copy(out, c)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func TestCanonicalFormRoundTripStraightLine(t *testing.T) {
	c := Cube{{0, 0, 0}, {0, 0, 1}, {0, 0, 2}}
	cf, err := EncodeCanonicalForm(c)
	require.NoError(t, err)

	got := DecodeCanonicalForm(cf, len(c), c[0])
	require.Equal(t, sortedCopy(c), sortedCopy(got))
}

func TestCanonicalFormRoundTripBranching(t *testing.T) {
	// A plus-shaped pentomino base (one branch point, four limbs), which
	// forces at least one jump-back instruction during the greedy walk.
	c := Cube{
		{1, 1, 0},
		{0, 1, 0}, {2, 1, 0},
		{1, 0, 0}, {1, 2, 0},
	}
	cf, err := EncodeCanonicalForm(c)
	require.NoError(t, err)
	require.NotEmpty(t, cf.Data)

	got := DecodeCanonicalForm(cf, len(c), Cube{c[0]}[0])
	require.Equal(t, sortedCopy(c), sortedCopy(got))
}

func TestCanonicalFormRejectsUnconnectedCube(t *testing.T) {
	c := Cube{{0, 0, 0}, {5, 5, 5}}
	_, err := EncodeCanonicalForm(c)
	require.ErrorIs(t, err, ErrInvariant)
}

func TestCanonicalFormSingleCube(t *testing.T) {
	c := Cube{{0, 0, 0}}
	cf, err := EncodeCanonicalForm(c)
	require.NoError(t, err)
	got := DecodeCanonicalForm(cf, 1, c[0])
	require.Equal(t, c, got)
}
