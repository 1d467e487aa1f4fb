package opencubes

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// ShardCount is the fixed number of SwapSet shards per shape: large
// enough to absorb contention across a typical machine, small enough
// that per-shape fixed overhead stays bounded. Grounded on
// original_source/cpp/include/hashes.hpp's Subhashy array size.
const ShardCount = 32

// shapeShards is one shape's fixed-width array of independently locked
// shards, each with its own CubeStorage file.
type shapeShards struct {
	shards [ShardCount]*SwapSet
}

// ShardedIndex is the two-level Shape -> [ShardCount]SwapSet map that
// routes inserts by coordinate hash and fans contention out across
// shards. Grounded on original_source/cpp/include/hashes.hpp's
// Hashy/Subhashy/Subsubhashy structure.
type ShardedIndex struct {
	dir string
	n   int

	mu     sync.RWMutex
	shapes map[Shape]*shapeShards
}

// NewShardedIndex constructs an index whose shard storage files are
// written under dir.
func NewShardedIndex(dir string, n int) *ShardedIndex {
	return &ShardedIndex{dir: dir, n: n, shapes: make(map[Shape]*shapeShards)}
}

// Init pre-registers one shard array per feasible shape for cubes of
// size n: every (x,y,z) with x<=y<=z, x+y+z < n, and
// (x+1)(y+1)(z+1) >= n (see FeasibleShapes). Shapes outside this set are never looked up by
// a correctly operating driver; At() on one aborts.
func (idx *ShardedIndex) Init() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, shape := range FeasibleShapes(idx.n) {
		idx.registerLocked(shape)
	}
}

func (idx *ShardedIndex) registerLocked(shape Shape) *shapeShards {
	if ss, ok := idx.shapes[shape]; ok {
		return ss
	}
	ss := &shapeShards{}
	for i := range ss.shards {
		ss.shards[i] = NewSwapSet(NewCubeStorage(idx.dir, idx.n))
	}
	idx.shapes[shape] = ss
	return ss
}

// At returns the shard array for shape, taking the top-level map's
// shared lock. Looking up a shape Init() never registered is a
// programmer error and aborts (ErrInvariant), per spec.md §4.E.
func (idx *ShardedIndex) At(shape Shape) *shapeShards {
	idx.mu.RLock()
	ss, ok := idx.shapes[shape]
	idx.mu.RUnlock()
	if !ok {
		// Only cmd/pcubes escalates to a process exit; a library caller
		// that recovers this panic still gets the ErrInvariant chain.
		panic(fatal(fmt.Sprintf("ShardedIndex: lookup of unregistered shape %+v", shape), nil))
	}
	return ss
}

// Insert hashes cube to pick a shard within shape's array (hash mod
// ShardCount), then runs the SwapSet insert protocol on that shard.
func (idx *ShardedIndex) Insert(r *CubeReader, cube Cube, shape Shape) (CubePtr, bool, error) {
	ss := idx.At(shape)
	shardIdx := hashCube(cube) % ShardCount
	return ss.shards[shardIdx].Insert(r, cube)
}

// Size sums sizes across every shard of every registered shape.
func (idx *ShardedIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	total := 0
	for _, ss := range idx.shapes {
		for _, shard := range ss.shards {
			total += shard.Size()
		}
	}
	return total
}

// Shapes returns the registered shapes in sorted order, for the Writer
// and for deterministic iteration.
func (idx *ShardedIndex) Shapes() []Shape {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Shape, 0, len(idx.shapes))
	for shape := range idx.shapes {
		out = append(out, shape)
	}
	slices.SortFunc(out, func(a, b Shape) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return out
}

// Shards returns the shard array registered for shape (same as At, but
// named for read-only callers like the Writer that don't want to imply
// the abort-on-missing semantics of the hot insert path).
func (idx *ShardedIndex) Shards(shape Shape) [ShardCount]*SwapSet {
	return idx.At(shape).shards
}

// ShapeSource is what Writer.Save needs: the set of shapes to lay out
// and each shape's shard array. ShardedIndex satisfies it directly;
// SingleShapeView lets the driver finalize one shape at a time for the
// -s (split cache) mode without threading shape filtering through the
// Writer itself.
type ShapeSource interface {
	Shapes() []Shape
	Shards(Shape) [ShardCount]*SwapSet
	Size() int
}

// SingleShapeView restricts idx to one shape, for the split-cache
// output mode where each shape is finalized into its own file.
type SingleShapeView struct {
	idx   *ShardedIndex
	shape Shape
}

// SingleShape returns a ShapeSource exposing only shape from idx.
func (idx *ShardedIndex) SingleShape(shape Shape) SingleShapeView {
	return SingleShapeView{idx: idx, shape: shape}
}

func (v SingleShapeView) Shapes() []Shape                   { return []Shape{v.shape} }
func (v SingleShapeView) Shards(Shape) [ShardCount]*SwapSet { return v.idx.At(v.shape).shards }
func (v SingleShapeView) Size() int {
	total := 0
	for _, s := range v.idx.At(v.shape).shards {
		total += s.Size()
	}
	return total
}
