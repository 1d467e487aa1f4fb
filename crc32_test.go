package opencubes

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nsch0e/opencubes/internal/mapped"
)

func TestCRC32TrailerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trailer.bin")
	f, err := mapped.Open(path, mapped.ReadWrite, mapped.Create|mapped.Resize, 16)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.WriteAt(0, []byte("0123456789abcdef")[:16]))
	require.NoError(t, writeCRC32Trailer(f, 0, 16))

	require.True(t, verifyCRC32Trailer(f, 0, 16))
}

func TestCRC32TrailerDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trailer.bin")
	f, err := mapped.Open(path, mapped.ReadWrite, mapped.Create|mapped.Resize, 16)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.WriteAt(0, []byte("0123456789abcdef")[:16]))
	require.NoError(t, writeCRC32Trailer(f, 0, 16))

	require.NoError(t, f.WriteAt(0, []byte("tampered!!!!!!!!")[:16]))
	require.False(t, verifyCRC32Trailer(f, 0, 16))
}
