package opencubes

import "sort"

// XYZ is a single unit-cube coordinate. Components are signed 8-bit
// integers, sufficient since N <= 127 bounds every axis.
type XYZ struct {
	X, Y, Z int8
}

// packed returns the coordinate as a 24-bit value, high byte first,
// matching the on-disk byte order used for lexicographic comparison.
func (p XYZ) packed() uint32 {
	return uint32(uint8(p.X))<<16 | uint32(uint8(p.Y))<<8 | uint32(uint8(p.Z))
}

// Less reports whether p sorts before q in the lexicographic order used
// throughout this package (coordinate sort order, rotation tie-breaking).
func (p XYZ) Less(q XYZ) bool { return p.packed() < q.packed() }

func (p XYZ) add(d XYZ) XYZ { return XYZ{p.X + d.X, p.Y + d.Y, p.Z + d.Z} }

// UnitDirs returns the six axis-aligned unit moves {+Z,-Z,+Y,-Y,+X,-X},
// in the fixed order CanonicalForm's nibble encoding depends on.
func UnitDirs() [6]XYZ { return unitDirs }

// unitDirs are the six axis-aligned unit moves, in the fixed order used by
// both the candidate-expansion client and CanonicalForm's nibble encoding:
// +Z, -Z, +Y, -Y, +X, -X.
var unitDirs = [6]XYZ{
	{0, 0, 1}, {0, 0, -1},
	{0, 1, 0}, {0, -1, 0},
	{1, 0, 0}, {-1, 0, 0},
}

// Cube is an ordered sequence of N coordinates. In canonical form the
// coordinates are sorted lexicographically, the minimum coordinate on
// each axis is zero, the set is 6-connected, and no rotation of the cube
// sorts smaller than it (see cmd/pcubes's expand(), which picks the least
// of the 24 rotations from internal/rotate).
type Cube []XYZ

// Shape is the axis-aligned bounding extent of a canonical Cube, with
// Dx <= Dy <= Dz enforced by the canonicalization procedure.
type Shape struct {
	Dx, Dy, Dz uint8
}

// Less orders shapes for the shape table (sorted by (Dx,Dy,Dz), per the
// cache format invariant in the data model).
func (s Shape) Less(o Shape) bool {
	if s.Dx != o.Dx {
		return s.Dx < o.Dx
	}
	if s.Dy != o.Dy {
		return s.Dy < o.Dy
	}
	return s.Dz < o.Dz
}

// ShapeOf computes the bounding shape of an already axis-zeroed cube.
func ShapeOf(c Cube) Shape {
	var dx, dy, dz int8
	for _, p := range c {
		if p.X > dx {
			dx = p.X
		}
		if p.Y > dy {
			dy = p.Y
		}
		if p.Z > dz {
			dz = p.Z
		}
	}
	dims := [3]uint8{uint8(dx), uint8(dy), uint8(dz)}
	sort.Slice(dims[:], func(i, j int) bool { return dims[i] < dims[j] })
	return Shape{dims[0], dims[1], dims[2]}
}

// FeasibleShapes enumerates every shape (x,y,z) with x <= y <= z that
// could possibly bound a connected polycube of n unit cubes: x+y+z < n
// (a connected polycube spanning those extents needs at least x+y+z+1
// cubes) and (x+1)(y+1)(z+1) >= n. Grounded on
// original_source/cpp/include/hashes.hpp's Hashy::generateShapes.
func FeasibleShapes(n int) []Shape {
	var out []Shape
	for x := 0; x < n; x++ {
		for y := x; y < n-x; y++ {
			for z := y; z < n-x-y; z++ {
				if (x+1)*(y+1)*(z+1) < n {
					continue
				}
				out = append(out, Shape{uint8(x), uint8(y), uint8(z)})
			}
		}
	}
	return out
}

// Normalize re-zeroes c so the minimum coordinate on each axis is zero,
// sorts the result lexicographically, and returns it with its bounding
// Shape — the common tail end of canonicalizing any rotation of a cube.
func Normalize(c Cube) (Cube, Shape) {
	if len(c) == 0 {
		return c, Shape{}
	}
	minX, minY, minZ := c[0].X, c[0].Y, c[0].Z
	for _, p := range c {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Z < minZ {
			minZ = p.Z
		}
	}
	out := make(Cube, len(c))
	for i, p := range c {
		out[i] = XYZ{p.X - minX, p.Y - minY, p.Z - minZ}
	}
	sortCoords(out)
	return out, ShapeOf(out)
}

// sortCoords sorts a cube's coordinates lexicographically in place.
func sortCoords(c Cube) {
	sort.Slice(c, func(i, j int) bool { return c[i].Less(c[j]) })
}

// encodeCoords packs c's coordinates into dst as consecutive (x,y,z)
// signed-byte triples, the layout shared by CubeStorage records and
// cache-file payloads.
func encodeCoords(c Cube, dst []byte) {
	for i, p := range c {
		dst[i*3] = byte(p.X)
		dst[i*3+1] = byte(p.Y)
		dst[i*3+2] = byte(p.Z)
	}
}

// decodeCoords reverses encodeCoords.
func decodeCoords(src []byte) Cube {
	c := make(Cube, len(src)/3)
	for i := range c {
		c[i] = XYZ{int8(src[i*3]), int8(src[i*3+1]), int8(src[i*3+2])}
	}
	return c
}

// LessCube compares two equal-length, already-sorted coordinate
// sequences lexicographically. Used by the driver to pick the canonical
// (least) of a cube's 24 rotations, per spec.md §3 invariant (d) and the
// GLOSSARY's "lexicographically least" definition of canonical form.
func LessCube(a, b Cube) bool {
	for i := range a {
		if a[i].packed() != b[i].packed() {
			return a[i].packed() < b[i].packed()
		}
	}
	return false
}
