package mapped

import "fmt"

// Record is implemented by fixed-layout values placed in a TypedRegion.
// Encoding is explicit byte-at-a-time rather than a struct reinterpret
// cast, per spec.md's portability note: the cache format is documented
// as bytes-on-the-wire and must not depend on host struct layout.
type Record interface {
	// RecordSize is the fixed encoded size in bytes.
	RecordSize() int
	// Encode writes the record into dst, which is exactly RecordSize() long.
	Encode(dst []byte)
	// Decode populates the record from src, which is exactly RecordSize() long.
	Decode(src []byte)
}

// recordPtr constrains PT to be *T where *T implements Record. Encode/Decode
// are naturally pointer-receiver methods (Decode mutates the value), so the
// region types carry both the value type T and its pointer type PT rather
// than requiring T itself to satisfy Record.
type recordPtr[T any] interface {
	*T
	Record
}

// StructRegion is a single fixed-size record view at a given offset in a
// mapped File.
type StructRegion[T any, PT recordPtr[T]] struct {
	file   *File
	offset int64
	size   int64
}

// NewStructRegion constructs a view of one record of T at offset. On a
// read-write file the region may grow the file to cover it; on a
// read-only file the file must already be at least offset+size long.
func NewStructRegion[T any, PT recordPtr[T]](file *File, offset int64) (*StructRegion[T, PT], error) {
	var zero T
	size := int64(PT(&zero).RecordSize())
	if file.mode == ReadOnly {
		if file.Size() < offset+size {
			return nil, fmt.Errorf("mapped: struct region at %d..%d exceeds read-only file size %d", offset, offset+size, file.Size())
		}
	} else if err := file.grow(offset + size); err != nil {
		return nil, fmt.Errorf("mapped: grow for struct region: %w", err)
	}
	return &StructRegion[T, PT]{file: file, offset: offset, size: size}, nil
}

// Get decodes and returns the current value of the region.
func (r *StructRegion[T, PT]) Get() T {
	var v T
	PT(&v).Decode(r.file.data[r.offset : r.offset+r.size])
	return v
}

// Set encodes v into the region. Read-write mappings only.
func (r *StructRegion[T, PT]) Set(v T) {
	PT(&v).Encode(r.file.data[r.offset : r.offset+r.size])
}

// Flush writes back the region's bytes.
func (r *StructRegion[T, PT]) Flush() error { return r.file.Flush(r.offset, r.size) }

// GetEndSeek returns the offset just past the region, for chained layout.
func (r *StructRegion[T, PT]) GetEndSeek() int64 { return r.offset + r.size }

// ArrayRegion is a view of count consecutive fixed-size records starting
// at offset in a mapped File.
type ArrayRegion[T any, PT recordPtr[T]] struct {
	file     *File
	offset   int64
	count    int
	recSize  int64
	totalLen int64
}

// NewArrayRegion constructs a view of count records of T starting at
// offset, with the same growth/bounds contract as NewStructRegion.
func NewArrayRegion[T any, PT recordPtr[T]](file *File, offset int64, count int) (*ArrayRegion[T, PT], error) {
	var zero T
	recSize := int64(PT(&zero).RecordSize())
	total := recSize * int64(count)
	if file.mode == ReadOnly {
		if file.Size() < offset+total {
			return nil, fmt.Errorf("mapped: array region at %d..%d exceeds read-only file size %d", offset, offset+total, file.Size())
		}
	} else if err := file.grow(offset + total); err != nil {
		return nil, fmt.Errorf("mapped: grow for array region: %w", err)
	}
	return &ArrayRegion[T, PT]{file: file, offset: offset, count: count, recSize: recSize, totalLen: total}, nil
}

// Len returns the number of records in the view.
func (r *ArrayRegion[T, PT]) Len() int { return r.count }

// Get decodes and returns the i'th record.
func (r *ArrayRegion[T, PT]) Get(i int) T {
	off := r.offset + int64(i)*r.recSize
	var v T
	PT(&v).Decode(r.file.data[off : off+r.recSize])
	return v
}

// Set encodes v into the i'th record.
func (r *ArrayRegion[T, PT]) Set(i int, v T) {
	off := r.offset + int64(i)*r.recSize
	PT(&v).Encode(r.file.data[off : off+r.recSize])
}

// Flush writes back the whole array's bytes.
func (r *ArrayRegion[T, PT]) Flush() error { return r.file.Flush(r.offset, r.totalLen) }

// GetEndSeek returns the offset just past the array, for chained layout.
func (r *ArrayRegion[T, PT]) GetEndSeek() int64 { return r.offset + r.totalLen }
