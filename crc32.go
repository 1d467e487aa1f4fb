package opencubes

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/nsch0e/opencubes/internal/mapped"
)

// writeCRC32Trailer computes the CRC32-IEEE checksum of f's bytes in
// [headerStart, tableEnd) and writes it as the 4 bytes immediately following,
// growing f to cover them. Grounded on luisschwab-utreexo/wal.go's
// CRC32-over-header-and-entries pattern, scaled down to a non-crash
// integrity check per SPEC_FULL.md §3.
func writeCRC32Trailer(f *mapped.File, headerStart, tableEnd int64) error {
	sum := crc32.ChecksumIEEE(f.Bytes()[headerStart:tableEnd])
	var buf [crc32Size]byte
	binary.LittleEndian.PutUint32(buf[:], sum)
	return f.WriteAt(tableEnd, buf[:])
}

// verifyCRC32Trailer reports whether the trailer at [tableEnd, tableEnd+4)
// matches the checksum of [headerStart, tableEnd). A mismatch is a
// FormatError per SPEC_FULL.md §3: non-fatal, the cache is treated as
// unloaded rather than aborting.
func verifyCRC32Trailer(f *mapped.File, headerStart, tableEnd int64) bool {
	if f.Size() < tableEnd+crc32Size {
		return false
	}
	want := binary.LittleEndian.Uint32(f.Bytes()[tableEnd : tableEnd+crc32Size])
	got := crc32.ChecksumIEEE(f.Bytes()[headerStart:tableEnd])
	return want == got
}
