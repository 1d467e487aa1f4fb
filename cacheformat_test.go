package opencubes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := CacheHeader{Magic: CacheMagic, N: 5, NumShapes: 3, NumPolycubes: 166}
	buf := make([]byte, h.RecordSize())
	h.Encode(buf)

	var got CacheHeader
	got.Decode(buf)
	require.Equal(t, h, got)
}

func TestShapeEntryEncodeDecodeRoundTrip(t *testing.T) {
	e := ShapeEntry{Dim0: 1, Dim1: 2, Dim2: 3, Offset: 128, SizeBytes: 96}
	buf := make([]byte, e.RecordSize())
	e.Encode(buf)

	var got ShapeEntry
	got.Decode(buf)
	require.Equal(t, e.Dim0, got.Dim0)
	require.Equal(t, e.Dim1, got.Dim1)
	require.Equal(t, e.Dim2, got.Dim2)
	require.Equal(t, e.Offset, got.Offset)
	require.Equal(t, e.SizeBytes, got.SizeBytes)
}

func TestShapeEntrySizeMatchesAlignedLayout(t *testing.T) {
	var e ShapeEntry
	require.Equal(t, 24, e.RecordSize())
}

func TestBodyOffsetAccountsForCRCTrailer(t *testing.T) {
	got := bodyOffset(2)
	want := int64(headerSize) + 2*int64(shapeEntrySize) + int64(crc32Size)
	require.Equal(t, want, got)
}
