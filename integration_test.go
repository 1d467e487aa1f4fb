package opencubes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nsch0e/opencubes"
	"github.com/nsch0e/opencubes/internal/oracle"
	"github.com/nsch0e/opencubes/internal/rotate"
)

// candidateNeighbors and expandOne mirror cmd/pcubes/main.go's
// candidateNeighbors/expand: they are duplicated here (rather than
// imported, since cmd/pcubes is package main) to drive the storage core
// through a real multi-generation enumeration for the round-trip
// property in spec.md §8 scenario 6.
func candidateNeighbors(c opencubes.Cube) []opencubes.XYZ {
	seen := make(map[opencubes.XYZ]bool, len(c)*6)
	in := make(map[opencubes.XYZ]bool, len(c))
	for _, p := range c {
		in[p] = true
	}
	var out []opencubes.XYZ
	for _, p := range c {
		for _, d := range opencubes.UnitDirs() {
			q := opencubes.XYZ{X: p.X + d.X, Y: p.Y + d.Y, Z: p.Z + d.Z}
			if in[q] || seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

func expandOne(t *testing.T, c opencubes.Cube, idx *opencubes.ShardedIndex, r *opencubes.CubeReader) {
	for _, p := range candidateNeighbors(c) {
		grown := make(opencubes.Cube, 0, len(c)+1)
		grown = append(grown, p)
		grown = append(grown, c...)

		var best opencubes.Cube
		var bestShape opencubes.Shape
		haveBest := false
		for i := 0; i < rotate.Count; i++ {
			rotated, shape := rotate.Apply(i, grown)
			if !haveBest || opencubes.LessCube(rotated, best) {
				best, bestShape, haveBest = rotated, shape, true
			}
		}
		require.True(t, haveBest)

		_, err := opencubes.EncodeCanonicalForm(best)
		require.NoError(t, err)

		_, _, err = idx.Insert(r, best, bestShape)
		require.NoError(t, err)
	}
}

// drainAllCubes reads every cube stored across every shape/shard of idx.
func drainAllCubes(t *testing.T, idx *opencubes.ShardedIndex) []opencubes.Cube {
	r := opencubes.NewCubeReader()
	var out []opencubes.Cube
	for _, shape := range idx.Shapes() {
		for _, shard := range idx.Shards(shape) {
			var readErr error
			shard.Each(func(ptr opencubes.CubePtr) {
				cube, err := shard.Storage().Read(r, ptr)
				if err != nil {
					readErr = err
					return
				}
				out = append(out, cube)
			})
			require.NoError(t, readErr)
		}
	}
	return out
}

// TestEnumerationRoundTripThroughN7 drives real candidate expansion,
// 24-rotation canonicalization, and deduplicated insertion generation
// by generation up to N=7, and checks the final count against the known
// oracle value and that every stored cube is connected under
// decode(encode(·)) (spec.md §8 scenario 6).
func TestEnumerationRoundTripThroughN7(t *testing.T) {
	const target = 7
	dir := t.TempDir()

	generation := []opencubes.Cube{{{0, 0, 0}}}

	for n := 2; n <= target; n++ {
		idx := opencubes.NewShardedIndex(dir, n)
		idx.Init()
		r := opencubes.NewCubeReader()

		for _, c := range generation {
			expandOne(t, c, idx, r)
		}

		want, ok := oracle.Known(n)
		require.True(t, ok)
		require.Equal(t, int(want), idx.Size(), "mismatch at n=%d", n)

		generation = drainAllCubes(t, idx)
		require.Len(t, generation, int(want))
	}

	require.Equal(t, 1023, len(generation))

	for _, cube := range generation {
		cf, err := opencubes.EncodeCanonicalForm(cube)
		require.NoError(t, err)

		decoded := opencubes.DecodeCanonicalForm(cf, len(cube), cube[0])
		require.ElementsMatch(t, cube, decoded)
	}
}
