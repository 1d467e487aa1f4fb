// Command pcubes enumerates free polycubes of a given size, pipelining
// the work through opencubes' out-of-core storage core. It is the
// external client spec.md §1 describes only by interface: candidate
// expansion, rotation, and the results oracle live here, not in the
// core.
//
// Grounded on original_source/cpp/program.cpp's flag contract and
// cubes.cpp's expand() (candidate generation, 24-rotation canonical
// selection, insertion into the shape index).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/nsch0e/opencubes"
	"github.com/nsch0e/opencubes/internal/oracle"
	"github.com/nsch0e/opencubes/internal/rotate"
)

var buildVersion = "dev"

func main() {
	var (
		n             = flag.IntP("n", "n", 1, "the size of polycube to generate")
		threads       = flag.IntP("t", "t", runtime.NumCPU(), "the number of threads to use while generating")
		useCache      = flag.BoolP("c", "c", false, "whether to load cache files")
		writeCache    = flag.BoolP("w", "w", false, "whether to save cache files")
		splitCache    = flag.BoolP("s", "s", false, "whether to save in separate cache files per output shape")
		useSplitCache = flag.BoolP("u", "u", false, "use separate cache files by input shape")
		folder        = flag.StringP("f", "f", "./cache/", "where to store cache files")
		version       = flag.BoolP("v", "v", false, "print build version info")
	)
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *version {
		fmt.Printf("pcubes %s (%s/%s)\n", buildVersion, runtime.GOOS, runtime.GOARCH)
	}

	if err := run(*n, *threads, *useCache, *writeCache, *splitCache, *useSplitCache, *folder); err != nil {
		log.Error().Err(err).Msg("pcubes: run failed")
		os.Exit(1)
	}
}

func run(n, threads int, useCache, writeCache, splitCache, useSplitCache bool, folder string) error {
	if n < 1 {
		return fmt.Errorf("opencubes: %w: -n must be >= 1", opencubes.ErrInvariant)
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return err
	}

	base, err := loadBase(n, folder, useCache, useSplitCache)
	if err != nil {
		return err
	}

	idx := opencubes.NewShardedIndex(folder, n)
	idx.Init()

	start := time.Now()
	if n == 1 {
		ptr := opencubes.Cube{{0, 0, 0}}
		if _, _, err := idx.Insert(opencubes.NewCubeReader(), ptr, opencubes.ShapeOf(ptr)); err != nil {
			return err
		}
	} else {
		if err := expandAll(base, idx, threads); err != nil {
			return err
		}
	}
	log.Info().Int("n", n).Int("count", idx.Size()).Dur("elapsed", time.Since(start)).Msg("enumeration complete")

	if want, ok := oracle.Known(n); ok && uint64(idx.Size()) != want {
		return fmt.Errorf("opencubes: %w: n=%d got %d want %d", opencubes.ErrOracleMismatch, n, idx.Size(), want)
	}

	if writeCache {
		if err := writeCaches(folder, idx, n, splitCache); err != nil {
			return err
		}
	}
	return nil
}

// loadBase returns the N-1 base cubes this run expands from. For n==1
// this is unused (the single unit cube is inserted directly by run()).
func loadBase(n int, folder string, useCache, useSplitCache bool) ([]opencubes.Cube, error) {
	if n <= 1 {
		return nil, nil
	}
	if useSplitCache {
		return loadSplitBase(n-1, folder)
	}
	if useCache {
		return loadSingleBase(n-1, folder)
	}
	return nil, fmt.Errorf("opencubes: no base cache requested for n=%d: pass -c or -u, or run n=%d first", n, n-1)
}

func loadSingleBase(prevN int, folder string) ([]opencubes.Cube, error) {
	r := opencubes.NewCacheReaderUnloaded()
	path := filepath.Join(folder, fmt.Sprintf("cache_%d.bin", prevN))
	if err := r.Load(path); err != nil {
		return nil, err
	}
	defer r.Unload()
	return drainAllShapes(r), nil
}

func loadSplitBase(prevN int, folder string) ([]opencubes.Cube, error) {
	shapes := opencubes.FeasibleShapes(prevN)
	var out []opencubes.Cube
	for _, shape := range shapes {
		r := opencubes.NewCacheReaderUnloaded()
		path := filepath.Join(folder, fmt.Sprintf("cache_%d_%d_%d_%d.bin", prevN, shape.Dx, shape.Dy, shape.Dz))
		if err := r.Load(path); err != nil {
			if err == opencubes.ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, drainAllShapes(r)...)
		r.Unload()
	}
	return out, nil
}

func drainAllShapes(r *opencubes.CacheReader) []opencubes.Cube {
	var out []opencubes.Cube
	for i := 0; i < r.NumShapes(); i++ {
		it := r.GetCubesByShape(i)
		for it.Next() {
			out = append(out, it.Cube())
		}
	}
	return out
}

// expandAll drives the base cubes through candidate expansion across a
// fixed worker pool, each worker owning its own CubeReader handle.
func expandAll(base []opencubes.Cube, idx *opencubes.ShardedIndex, threads int) error {
	if threads < 1 {
		threads = 1
	}
	work := make(chan opencubes.Cube)
	errCh := make(chan error, threads)
	var wg sync.WaitGroup

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := opencubes.NewCubeReader()
			for c := range work {
				if err := expand(c, idx, r); err != nil {
					select {
					case errCh <- err:
					default:
					}
				}
			}
		}()
	}
	for _, c := range base {
		work <- c
	}
	close(work)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// expand enumerates c's 6-connected candidate coordinates (one cube
// larger), and for each, selects its lexicographically least rotation
// and inserts that canonical form into idx under its shape. Grounded on
// original_source/cpp/cubes.cpp's expand().
func expand(c opencubes.Cube, idx *opencubes.ShardedIndex, r *opencubes.CubeReader) error {
	candidates := candidateNeighbors(c)

	for _, p := range candidates {
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
		if !haveBest {
			continue
		}

		if _, err := opencubes.EncodeCanonicalForm(best); err != nil {
			return fmt.Errorf("opencubes: %w: candidate from expand() is unconnected", opencubes.ErrInvariant)
		}

		if _, _, err := idx.Insert(r, best, bestShape); err != nil {
			return err
		}
	}
	return nil
}

// candidateNeighbors returns the distinct coordinates adjacent to c but
// not already in it.
func candidateNeighbors(c opencubes.Cube) []opencubes.XYZ {
	seen := make(map[opencubes.XYZ]bool, len(c)*6)
	in := make(map[opencubes.XYZ]bool, len(c))
	for _, p := range c {
		in[p] = true
	}
	var out []opencubes.XYZ
	for _, p := range c {
		for _, d := range opencubes.UnitDirs() {
			q := opencubes.XYZ{p.X + d.X, p.Y + d.Y, p.Z + d.Z}
			if in[q] || seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

func writeCaches(folder string, idx *opencubes.ShardedIndex, n int, split bool) error {
	w := opencubes.NewWriter(opencubes.WriterWorkers)
	defer w.Close()

	if !split {
		path := filepath.Join(folder, fmt.Sprintf("cache_%d.bin", n))
		return w.Save(path, idx, n)
	}
	for _, shape := range idx.Shapes() {
		path := filepath.Join(folder, fmt.Sprintf("cache_%d_%d_%d_%d.bin", n, shape.Dx, shape.Dy, shape.Dz))
		if err := w.Save(path, idx.SingleShape(shape), n); err != nil {
			return err
		}
	}
	return nil
}
