// Package rotate computes the 24 rotations of the cube's symmetry group
// acting on cube coordinates. It is a pure, stateless collaborator of
// the enumeration driver (cmd/pcubes); the core storage packages never
// import it, matching spec.md §1's placement of rotation matrices
// outside the core.
//
// Grounded in the existence of a rotation step in
// original_source/cpp/cubes.cpp's expand() (`Rotations::rotate(i, shape,
// newCube)` for i in 0..23) — the rotation matrix table itself was not
// present in the retrieved sources, so this package supplies the
// standard representation of the chiral octahedral group (24 signed
// axis permutations) rather than inventing a nonstandard one.
package rotate

import "github.com/nsch0e/opencubes"

// Count is the number of distinct rotations in the chiral octahedral
// group (orientation-preserving symmetries of the cube).
const Count = 24

// perm3 is a permutation of the three axes with a sign for each,
// representing one rotation: out[i] = sign[i] * in[axis[i]].
type perm3 struct {
	axis [3]int
	sign [3]int8
}

// matrices holds the 24 signed permutations, generated below rather
// than hand-transcribed, so the construction documents the group
// structure instead of asserting an uncheckable table.
var matrices = generateRotations()

// generateRotations enumerates the 24 signed permutation matrices with
// determinant +1: all 6 permutations of 3 axes times all 8 sign
// combinations, keeping the 24 of 48 that preserve orientation.
func generateRotations() []perm3 {
	perms := [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2},
		{1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	parityOf := func(p [3]int) int {
		parity := 0
		for i := 0; i < 3; i++ {
			for j := i + 1; j < 3; j++ {
				if p[i] > p[j] {
					parity++
				}
			}
		}
		return parity % 2
	}
	var out []perm3
	for _, p := range perms {
		permParity := parityOf(p)
		for s := 0; s < 8; s++ {
			signs := [3]int8{sign(s, 0), sign(s, 1), sign(s, 2)}
			negCount := 0
			for _, sg := range signs {
				if sg < 0 {
					negCount++
				}
			}
			// determinant sign = (-1)^permParity * (-1)^negCount; keep +1.
			if (permParity+negCount)%2 != 0 {
				continue
			}
			out = append(out, perm3{axis: p, sign: signs})
		}
	}
	return out
}

func sign(mask, bit int) int8 {
	if mask&(1<<bit) != 0 {
		return -1
	}
	return 1
}

// Apply rotates every coordinate of c by rotation index i (0..23),
// re-zeroing the minimum on each axis so the result sits in the
// non-negative octant, and returns the rotated-and-sorted cube alongside
// its new bounding shape.
func Apply(i int, c opencubes.Cube) (opencubes.Cube, opencubes.Shape) {
	m := matrices[i%Count]
	out := make(opencubes.Cube, len(c))
	for idx, p := range c {
		in := [3]int8{p.X, p.Y, p.Z}
		out[idx] = opencubes.XYZ{
			X: int8(m.sign[0]) * in[m.axis[0]],
			Y: int8(m.sign[1]) * in[m.axis[1]],
			Z: int8(m.sign[2]) * in[m.axis[2]],
		}
	}
	return opencubes.Normalize(out)
}
