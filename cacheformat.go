package opencubes

import "encoding/binary"

// CacheMagic is 'PCUB' read as little-endian bytes, per spec.md §6.
const CacheMagic uint32 = 0x42554350

// headerSize is the encoded length of CacheHeader: magic, n, numShapes
// (all uint32) plus numPolycubes (uint64) = 4+4+4+8.
const headerSize = 20

// shapeEntrySize is the encoded length of one ShapeEntry: four bytes
// (dim0, dim1, dim2, reserved), padded to the 8-byte alignment offset
// and size_bytes require, then the two uint64 fields: 4 + 4 pad + 8 + 8.
const shapeEntrySize = 24

// crc32Size is the trailing integrity checksum's encoded length,
// inserted between the shape table and the first cube payload per
// SPEC_FULL.md §3.
const crc32Size = 4

// CacheHeader is the fixed header of a cache file: magic, the N this
// cache was written for, the number of shape-table entries that follow,
// and the total polycube count across all shapes.
type CacheHeader struct {
	Magic        uint32
	N            uint32
	NumShapes    uint32
	NumPolycubes uint64
}

func (CacheHeader) RecordSize() int { return headerSize }

func (h CacheHeader) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], h.Magic)
	binary.LittleEndian.PutUint32(dst[4:8], h.N)
	binary.LittleEndian.PutUint32(dst[8:12], h.NumShapes)
	binary.LittleEndian.PutUint64(dst[12:20], h.NumPolycubes)
}

func (h *CacheHeader) Decode(src []byte) {
	h.Magic = binary.LittleEndian.Uint32(src[0:4])
	h.N = binary.LittleEndian.Uint32(src[4:8])
	h.NumShapes = binary.LittleEndian.Uint32(src[8:12])
	h.NumPolycubes = binary.LittleEndian.Uint64(src[12:20])
}

// ShapeEntry describes one shape's payload range within the cache file.
// Offset is written but treated as advisory on read, per the Open
// Question resolution in SPEC_FULL.md §9: the reader recomputes offsets
// by cumulative summation of SizeBytes instead of trusting the field.
type ShapeEntry struct {
	Dim0, Dim1, Dim2 uint8
	Offset           uint64
	SizeBytes        uint64
}

func (ShapeEntry) RecordSize() int { return shapeEntrySize }

func (e ShapeEntry) Encode(dst []byte) {
	dst[0], dst[1], dst[2], dst[3] = e.Dim0, e.Dim1, e.Dim2, 0
	dst[4], dst[5], dst[6], dst[7] = 0, 0, 0, 0
	binary.LittleEndian.PutUint64(dst[8:16], e.Offset)
	binary.LittleEndian.PutUint64(dst[16:24], e.SizeBytes)
}

func (e *ShapeEntry) Decode(src []byte) {
	e.Dim0, e.Dim1, e.Dim2 = src[0], src[1], src[2]
	e.Offset = binary.LittleEndian.Uint64(src[8:16])
	e.SizeBytes = binary.LittleEndian.Uint64(src[16:24])
}

func (e ShapeEntry) shape() Shape { return Shape{e.Dim0, e.Dim1, e.Dim2} }

// shapeTableOffset is the byte offset the shape table begins at, always
// right after the fixed header.
const shapeTableOffset = headerSize

// bodyOffset returns the byte offset the first cube payload begins at,
// given numShapes entries in the table: header + shape table + the
// trailing CRC32 trailer from SPEC_FULL.md §3. This is the one numeric
// adjustment to spec.md §6/§8's literal `20 + 24*numShapes` formula.
func bodyOffset(numShapes int) int64 {
	return int64(shapeTableOffset) + int64(numShapes)*shapeEntrySize + crc32Size
}
