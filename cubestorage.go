package opencubes

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/nsch0e/opencubes/internal/mapped"
)

// storageSeq is the process-wide monotonic counter seeding storage_N.bin
// filenames. Per spec.md §9's open question, multi-process collisions on
// a shared cache directory are out of scope for a single-process run.
var storageSeq atomic.Int64

// CubePtr identifies a persisted (or staged) cube: a byte offset into a
// CubeStorage tagged with the storage's version at the time the offset
// was produced, so a stale ptr read after discard() never resurrects an
// old record. A CubePtr returned by local() additionally carries the
// staged bytes directly until commit() or drop() resolves it — Go has no
// implicit thread-local storage, so the "thread-local slot" in the
// design is realized as this explicit, caller-owned value instead of
// goroutine-keyed global state.
type CubePtr struct {
	Storage *CubeStorage
	Offset  int64
	Version uint64

	staged Cube // non-nil only between local() and commit()/drop()
}

// pending reports whether the ptr is an uncommitted, thread-local slot.
func (p CubePtr) pending() bool { return p.staged != nil }

// CubeStorage is an append-only arena of fixed-size coordinate records
// backed by one file, created lazily on first commit. Grounded on
// original_source/cpp/include/cubeSwapSet.hpp's CubeStorage/CubePtr
// contract, realized with the explicit staging-slot + versioned
// read-cache model documented in SPEC_FULL.md §4.C in place of C++
// thread-local storage.
type CubeStorage struct {
	dir        string
	path       string
	recordSize int64 // N * 3 bytes

	mu      sync.Mutex
	file    *mapped.File
	cursor  int64
	version uint64
}

// NewCubeStorage constructs a storage for n-coordinate cubes under dir.
// The backing file is not created until the first commit().
func NewCubeStorage(dir string, n int) *CubeStorage {
	seq := storageSeq.Add(1) - 1
	return &CubeStorage{
		dir:        dir,
		path:       filepath.Join(dir, fmt.Sprintf("storage_%d.bin", seq)),
		recordSize: int64(n) * 3,
	}
}

// Path returns the backing file path (valid even before it's created).
func (s *CubeStorage) Path() string { return s.path }

// RecordSize returns N*3, the fixed encoded length of one cube.
func (s *CubeStorage) RecordSize() int64 { return s.recordSize }

// Local stages cube in a provisional, caller-owned CubePtr. The file is
// not touched; this call takes no lock. The cube's coordinates are
// copied so the caller may reuse its own buffer afterward.
func (s *CubeStorage) Local(cube Cube) CubePtr {
	staged := make(Cube, len(cube))
	copy(staged, cube)
	return CubePtr{Storage: s, staged: staged}
}

// Commit publishes ptr's staged bytes to the file at the current append
// cursor and advances the cursor by one record. Must be called at most
// once per Local() result. Mutates ptr in place so the caller's copy
// becomes a regular, file-backed CubePtr.
func (s *CubeStorage) Commit(ptr *CubePtr) error {
	if !ptr.pending() || ptr.Storage != s {
		return wrapInvariant("commit() on a non-pending or foreign CubePtr")
	}
	if int64(len(ptr.staged)) != s.recordSize/3 {
		return wrapInvariant("cube size does not match storage record size")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		f, err := mapped.Open(s.path, mapped.ReadWrite, mapped.Create|mapped.Sequential, 0)
		if err != nil {
			return fatal(fmt.Sprintf("CubeStorage: failed to create backing file %s", s.path), err)
		}
		s.file = f
	}

	buf := make([]byte, s.recordSize)
	encodeCoords(ptr.staged, buf)
	offset := s.cursor
	if err := s.file.WriteAt(offset, buf); err != nil {
		return fatal(fmt.Sprintf("CubeStorage: commit failed to grow file %s", s.path), err)
	}
	s.cursor += s.recordSize

	ptr.Offset = offset
	ptr.Version = s.version
	ptr.staged = nil
	return nil
}

// Drop discards ptr's staged slot without writing.
func (s *CubeStorage) Drop(ptr *CubePtr) {
	ptr.staged = nil
}

// Read returns the cube a ptr refers to, consulting r's per-handle
// read-cache on a committed ptr, or the staged slot directly on a
// pending one.
func (s *CubeStorage) Read(r *CubeReader, ptr CubePtr) (Cube, error) {
	if ptr.pending() {
		return ptr.staged, nil
	}
	if ptr.Version != s.version {
		return nil, ErrStale
	}
	if cube, ok := r.lookup(s, ptr.Offset, ptr.Version); ok {
		return cube, nil
	}

	buf := make([]byte, s.recordSize)
	s.mu.Lock()
	// version re-checked under the lock: discard() bumps version and
	// drops the file while holding it, so a read racing a discard either
	// observes the old version (and reads valid bytes) or the new one
	// (and misses via the check below).
	version := s.version
	var readErr error
	if version == ptr.Version {
		readErr = s.file.ReadAt(ptr.Offset, buf)
	}
	s.mu.Unlock()

	if version != ptr.Version {
		return nil, ErrStale
	}
	if readErr != nil {
		return nil, fatal(fmt.Sprintf("CubeStorage: read out-of-range offset %d", ptr.Offset), readErr)
	}

	cube := decodeCoords(buf)
	r.insert(s, ptr.Offset, ptr.Version, cube)
	return cube, nil
}

// Copydata bypasses the read-cache entirely, used by the materializing
// (non-splice) Writer fallback path.
func (s *CubeStorage) Copydata(ptr CubePtr, out Cube) error {
	if ptr.pending() {
		copy(out, ptr.staged)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != ptr.Version {
		return ErrStale
	}
	buf := make([]byte, s.recordSize)
	if err := s.file.ReadAt(ptr.Offset, buf); err != nil {
		return wrapInvariant(fmt.Sprintf("copydata out-of-range offset %d: %v", ptr.Offset, err))
	}
	copy(out, decodeCoords(buf))
	return nil
}

// File returns a held reference to the backing mapped.File (nil if
// nothing committed yet), for the Writer's splice path. The caller owns
// the returned reference and must Unref it once done — this is what
// lets a splice job keep reading from the file after Discard has
// dropped CubeStorage's own reference, instead of racing Discard's
// Close against an in-flight copy.
func (s *CubeStorage) File() *mapped.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Ref()
}

// Len returns the number of committed records.
func (s *CubeStorage) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor / s.recordSize
}

// Discard drops CubeStorage's own reference to the file without
// deleting it, resets the cursor, and bumps version so every
// outstanding CubePtr keyed by the old version misses on next read.
// Safe to call while a splice job is still reading the file through its
// own reference from File(): the file's actual close (and the backing
// path's unlink, done by the splice job once its copy completes) only
// happens once every Ref()'d holder has Unref'd, so Discard never races
// a concurrent CopyAt. Mirrors the C++ CacheWriter capturing the source
// mapped::file by shared_ptr value rather than relying on CubeStorage's
// own lifetime.
func (s *CubeStorage) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.cursor = 0
	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	return f.Unref()
}
