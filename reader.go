package opencubes

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/nsch0e/opencubes/internal/mapped"
)

// CacheReader maps a cache file read-only and exposes per-shape cube
// ranges as iterators. Grounded on
// original_source/cpp/src/newCache.cpp's CacheReader: a dummy empty
// header is used when nothing is loaded so Size()/NumShapes() stay safe
// without a nil check at every call site.
type CacheReader struct {
	path   string
	file   *mapped.File
	loaded bool

	header       CacheHeader
	shapes       []ShapeEntry
	shapeOffsets []int64 // recomputed cumulative offsets, not trusted from disk
}

// NewCacheReaderUnloaded returns a reader with no file loaded: the
// dummy-header state from the design notes.
func NewCacheReaderUnloaded() *CacheReader { return &CacheReader{} }

// Load opens path, validates its header and CRC32 trailer, and maps its
// shape table. Returns ErrNotFound if the file is absent, ErrFormat on
// any structural problem (bad magic, bad checksum, truncated table) —
// both recoverable per spec.md §7: the caller treats the reader as
// unloaded and recomputes.
func (r *CacheReader) Load(path string) error {
	r.Unload()

	f, err := mapped.Open(path, mapped.ReadOnly, 0, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("opencubes: %w: open %s: %v", ErrFormat, path, err)
	}

	headerRegion, err := mapped.NewStructRegion[CacheHeader, *CacheHeader](f, 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("opencubes: %w: truncated header in %s: %v", ErrFormat, path, err)
	}
	h := headerRegion.Get()
	if h.Magic != CacheMagic {
		f.Close()
		return fmt.Errorf("opencubes: %w: bad magic in %s", ErrFormat, path)
	}

	tableRegion, err := mapped.NewArrayRegion[ShapeEntry, *ShapeEntry](f, headerRegion.GetEndSeek(), int(h.NumShapes))
	if err != nil {
		f.Close()
		return fmt.Errorf("opencubes: %w: truncated shape table in %s: %v", ErrFormat, path, err)
	}
	tableEnd := tableRegion.GetEndSeek()

	if !verifyCRC32Trailer(f, 0, tableEnd) {
		f.Close()
		return fmt.Errorf("opencubes: %w: checksum mismatch in %s", ErrFormat, path)
	}
	dataStart := tableEnd + crc32Size

	shapes := make([]ShapeEntry, h.NumShapes)
	offsets := make([]int64, h.NumShapes)
	cum := dataStart
	for i := 0; i < int(h.NumShapes); i++ {
		e := tableRegion.Get(i)
		shapes[i] = e
		offsets[i] = cum
		cum += int64(e.SizeBytes)
	}

	if f.Size() != cum {
		log.Warn().Str("path", path).Int64("want", cum).Int64("have", f.Size()).
			Msg("CacheReader: file size does not match sum of shape sizes")
	}

	r.path, r.file, r.header, r.shapes, r.shapeOffsets, r.loaded = path, f, h, shapes, offsets, true
	return nil
}

// Unload releases the mapped file and resets to the dummy-header state.
func (r *CacheReader) Unload() {
	if r.file != nil {
		r.file.Close()
	}
	*r = CacheReader{}
}

func (r *CacheReader) N() int               { return int(r.header.N) }
func (r *CacheReader) NumShapes() int       { return int(r.header.NumShapes) }
func (r *CacheReader) NumPolycubes() uint64 { return r.header.NumPolycubes }
func (r *CacheReader) Loaded() bool         { return r.loaded }

// ShapeAt returns the i'th shape table entry's shape.
func (r *CacheReader) ShapeAt(i int) Shape { return r.shapes[i].shape() }

// CubeIterator is the abstract forward-traversal contract both iterator
// flavors below satisfy: forward traversal, and cloning to save a restart
// point. The interface has no equality comparison between iterators.
type CubeIterator interface {
	// Next advances to the next cube, returning false once exhausted.
	Next() bool
	// Cube returns the coordinates at the current position.
	Cube() Cube
	// Clone returns an independent copy positioned identically.
	Clone() CubeIterator
}

// memResidentIterator walks directly over a mapped.File's live byte
// slice — the common case, since CacheReader keeps the whole cache
// file mapped.
type memResidentIterator struct {
	data    []byte
	recSize int64
	count   int
	pos     int // -1 before first Next()
}

func (it *memResidentIterator) Next() bool {
	if it.pos+1 >= it.count {
		it.pos = it.count
		return false
	}
	it.pos++
	return true
}

func (it *memResidentIterator) Cube() Cube {
	off := int64(it.pos) * it.recSize
	return decodeCoords(it.data[off : off+it.recSize])
}

func (it *memResidentIterator) Clone() CubeIterator {
	c := *it
	return &c
}

// GetCubesByShape returns a memory-resident iterator over the i'th
// shape's cubes. An out-of-range or empty shape yields an iterator that
// is immediately exhausted.
func (r *CacheReader) GetCubesByShape(i int) CubeIterator {
	recSize := int64(r.header.N) * 3
	if i < 0 || i >= len(r.shapes) || r.shapes[i].SizeBytes == 0 {
		return &memResidentIterator{pos: 0, count: 0}
	}
	start := r.shapeOffsets[i]
	end := start + int64(r.shapes[i].SizeBytes)
	return &memResidentIterator{
		data:    r.file.Bytes()[start:end],
		recSize: recSize,
		count:   int(r.shapes[i].SizeBytes / uint64(recSize)),
		pos:     -1,
	}
}

// streamingIterator rereads each cube from an io.ReaderAt on demand
// instead of indexing a live mapping — the fallback flavor for a caller
// that opened the cache as a plain file handle rather than mapping it.
type streamingIterator struct {
	r       io.ReaderAt
	base    int64
	recSize int64
	count   int
	pos     int
}

func (it *streamingIterator) Next() bool {
	if it.pos+1 >= it.count {
		it.pos = it.count
		return false
	}
	it.pos++
	return true
}

func (it *streamingIterator) Cube() Cube {
	buf := make([]byte, it.recSize)
	off := it.base + int64(it.pos)*it.recSize
	if _, err := it.r.ReadAt(buf, off); err != nil {
		panic(wrapInvariant(fmt.Sprintf("streaming iterator read at %d: %v", off, err)))
	}
	return decodeCoords(buf)
}

func (it *streamingIterator) Clone() CubeIterator {
	c := *it
	return &c
}

// StreamCubesByShape returns a file-streaming iterator over the i'th
// shape's cubes, reading through ra rather than the reader's own
// mapping. Useful when the caller wants to iterate without holding the
// whole cache mapped.
func (r *CacheReader) StreamCubesByShape(ra io.ReaderAt, i int) CubeIterator {
	recSize := int64(r.header.N) * 3
	if i < 0 || i >= len(r.shapes) || r.shapes[i].SizeBytes == 0 {
		return &streamingIterator{pos: 0, count: 0}
	}
	return &streamingIterator{
		r:       ra,
		base:    r.shapeOffsets[i],
		recSize: recSize,
		count:   int(r.shapes[i].SizeBytes / uint64(recSize)),
		pos:     -1,
	}
}
