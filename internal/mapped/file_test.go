package mapped

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAtGrowsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	f, err := Open(path, ReadWrite, Create, 0)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, int64(0), f.Size())
	require.NoError(t, f.WriteAt(10, []byte("hi")))
	require.Equal(t, int64(12), f.Size())

	buf := make([]byte, 2)
	require.NoError(t, f.ReadAt(10, buf))
	require.Equal(t, []byte("hi"), buf)
}

func TestReadAtPastEndOfFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	f, err := Open(path, ReadWrite, Create|Resize, 4)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 8)
	require.Error(t, f.ReadAt(0, buf))
}

func TestTruncateShrinksAndRemaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	f, err := Open(path, ReadWrite, Create|Resize, 64)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Truncate(8))
	require.Equal(t, int64(8), f.Size())
}

func TestCopyAtCopiesBytesBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	src, err := Open(filepath.Join(dir, "src.bin"), ReadWrite, Create, 0)
	require.NoError(t, err)
	defer src.Close()
	dst, err := Open(filepath.Join(dir, "dst.bin"), ReadWrite, Create, 0)
	require.NoError(t, err)
	defer dst.Close()

	payload := []byte("the quick brown fox")
	require.NoError(t, src.WriteAt(0, payload))

	require.NoError(t, dst.CopyAt(src, 0, int64(len(payload)), 5))

	got := make([]byte, len(payload))
	require.NoError(t, dst.ReadAt(5, got))
	require.Equal(t, payload, got)
}

func TestOpenReadOnlyRejectsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	f, err := Open(path, ReadWrite, Create|Resize, 4)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ro, err := Open(path, ReadOnly, 0, 0)
	require.NoError(t, err)
	defer ro.Close()

	require.Error(t, ro.WriteAt(0, []byte("x")))
}
