package rotate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nsch0e/opencubes"
)

func TestApplyIdentityIsAmongTheTwentyFour(t *testing.T) {
	c := opencubes.Cube{{0, 0, 0}, {0, 0, 1}, {0, 1, 0}}
	norm, _ := opencubes.Normalize(c)

	foundIdentity := false
	for i := 0; i < Count; i++ {
		rotated, _ := Apply(i, norm)
		if len(rotated) == len(norm) {
			match := true
			for j := range rotated {
				if rotated[j] != norm[j] {
					match = false
					break
				}
			}
			if match {
				foundIdentity = true
				break
			}
		}
	}
	require.True(t, foundIdentity)
}

func TestApplyPreservesCubeSize(t *testing.T) {
	c := opencubes.Cube{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}}
	for i := 0; i < Count; i++ {
		rotated, _ := Apply(i, c)
		require.Len(t, rotated, len(c))
	}
}

func TestApplyProducesNonNegativeCoordinates(t *testing.T) {
	c := opencubes.Cube{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}}
	for i := 0; i < Count; i++ {
		rotated, _ := Apply(i, c)
		for _, p := range rotated {
			require.GreaterOrEqual(t, p.X, int8(0))
			require.GreaterOrEqual(t, p.Y, int8(0))
			require.GreaterOrEqual(t, p.Z, int8(0))
		}
	}
}

func TestGenerateRotationsProducesTwentyFourDistinctMatrices(t *testing.T) {
	require.Len(t, matrices, 24)
	seen := make(map[perm3]bool)
	for _, m := range matrices {
		require.False(t, seen[m], "duplicate rotation matrix")
		seen[m] = true
	}
}
