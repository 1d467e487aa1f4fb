// Package mapped provides the memory-mapped file substrate the rest of
// opencubes builds on: random read/write, safe growth and tail-trimming,
// and an OS-accelerated file-to-file byte copy. It is the Go analogue of
// the teacher's internal/swisstable mmap lifecycle, generalized from a
// single fixed-purpose table into a general-purpose typed file.
package mapped

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Mode selects the access mode a File is opened with.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// OpenFlag are additional bits passed to Open.
type OpenFlag int

const (
	// Create creates the file if it does not exist. Read-write only.
	Create OpenFlag = 1 << iota
	// Resize grows the file to the requested length on open.
	Resize
	// Sequential advises the kernel the file will be scanned
	// sequentially (readahead hint; no effect on correctness).
	Sequential
)

// File is a single OS file descriptor plus at most one active mapping
// window, covering the whole current file length. Growth remaps;
// truncation below the mapped length remaps down.
//
// A File is shared-read / exclusive-write at the method level: concurrent
// readers are safe, and concurrent CopyAt calls into the same destination
// run one at a time, but a caller mutating the file through WriteAt or
// Truncate must hold its own exclusion — CubeStorage does this via its
// per-storage mutex, and the Writer only truncates its output file once
// every copy job has finished.
//
// A File carries a reference count, starting at one on Open, so a
// long-running holder (a splice job's source file) can keep it open
// past its original owner dropping its own reference — the Go analogue
// of passing a C++ std::shared_ptr<mapped::file> into a worker closure
// by value rather than by raw pointer.
type File struct {
	f    *os.File
	mode Mode
	path string

	data []byte // current mapping, nil if size is 0
	refs atomic.Int32

	copyMu sync.Mutex // serializes CopyAt calls into this file
}

// Open opens path under the given mode and flags. NotFound/permission
// errors from the OS are returned unwrapped so callers can match them
// with os.IsNotExist.
func Open(path string, mode Mode, flags OpenFlag, initialSize int64) (*File, error) {
	osFlags := os.O_RDONLY
	if mode == ReadWrite {
		osFlags = os.O_RDWR
		if flags&Create != 0 {
			osFlags |= os.O_CREATE
		}
	}
	f, err := os.OpenFile(path, osFlags, 0644)
	if err != nil {
		return nil, err
	}

	mf := &File{f: f, mode: mode, path: path}
	mf.refs.Store(1)

	if flags&Sequential != 0 {
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	}

	size, err := mf.fileSize()
	if err != nil {
		f.Close()
		return nil, err
	}
	if flags&Resize != 0 && size < initialSize {
		if err := mf.Truncate(initialSize); err != nil {
			f.Close()
			return nil, err
		}
		return mf, nil
	}
	if size > 0 {
		if err := mf.remap(size); err != nil {
			f.Close()
			return nil, err
		}
	}
	return mf, nil
}

func (mf *File) fileSize() (int64, error) {
	fi, err := mf.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Size returns the current file length in bytes.
func (mf *File) Size() int64 {
	return int64(len(mf.data))
}

// Path returns the path the file was opened with.
func (mf *File) Path() string { return mf.path }

// Fd exposes the raw descriptor, needed by CopyAt's unix.CopyFileRange
// call on the source side.
func (mf *File) Fd() uintptr { return mf.f.Fd() }

func (mf *File) unmap() error {
	if mf.data == nil {
		return nil
	}
	err := unix.Munmap(mf.data)
	mf.data = nil
	return err
}

// remap replaces the current mapping with one covering [0, size). size
// must already be the file's on-disk length.
func (mf *File) remap(size int64) error {
	if err := mf.unmap(); err != nil {
		return fmt.Errorf("mapped: unmap %s: %w", mf.path, err)
	}
	if size == 0 {
		return nil
	}
	prot := unix.PROT_READ
	if mf.mode == ReadWrite {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(mf.f.Fd()), 0, int(size), prot, mmapFlags)
	if err != nil {
		return fmt.Errorf("mapped: mmap %s: %w", mf.path, err)
	}
	mf.data = data
	return nil
}

// Truncate sets the file length to n, releasing pages past n and remapping.
func (mf *File) Truncate(n int64) error {
	if err := mf.unmap(); err != nil {
		return fmt.Errorf("mapped: unmap before truncate %s: %w", mf.path, err)
	}
	if err := mf.f.Truncate(n); err != nil {
		return fmt.Errorf("mapped: truncate %s: %w", mf.path, err)
	}
	return mf.remap(n)
}

// grow extends the file to at least n bytes if it is currently shorter.
func (mf *File) grow(n int64) error {
	if n <= mf.Size() {
		return nil
	}
	return mf.Truncate(n)
}

// WriteAt writes src at offset, growing the file if necessary (read-write
// mode only).
func (mf *File) WriteAt(offset int64, src []byte) error {
	if mf.mode != ReadWrite {
		return fmt.Errorf("mapped: write on read-only file %s", mf.path)
	}
	end := offset + int64(len(src))
	if err := mf.grow(end); err != nil {
		return fmt.Errorf("mapped: grow %s to %d: %w", mf.path, end, err)
	}
	copy(mf.data[offset:end], src)
	return nil
}

// ReadAt reads len(dst) bytes starting at offset into dst.
func (mf *File) ReadAt(offset int64, dst []byte) error {
	end := offset + int64(len(dst))
	if end > mf.Size() {
		return fmt.Errorf("mapped: read [%d,%d) exceeds size %d of %s", offset, end, mf.Size(), mf.path)
	}
	copy(dst, mf.data[offset:end])
	return nil
}

// Bytes returns the live mapping for callers that build TypedRegion views
// directly over it. The slice is only valid until the next call that
// remaps the file (Truncate, WriteAt past EOF).
func (mf *File) Bytes() []byte { return mf.data }

// Flush requests writeback of [offset, offset+n) and returns only after
// the kernel accepts the flush (MS_SYNC).
func (mf *File) Flush(offset, n int64) error {
	if mf.data == nil || n == 0 {
		return nil
	}
	if err := unix.Msync(mf.data[offset:offset+n], unix.MS_SYNC); err != nil {
		return fmt.Errorf("mapped: msync %s: %w", mf.path, err)
	}
	return nil
}

// Discard drops any dirty pages in [offset, offset+n) without flushing,
// used before Truncate during abandonment of a speculative write.
func (mf *File) Discard(offset, n int64) error {
	if mf.data == nil || n == 0 {
		return nil
	}
	if err := unix.Madvise(mf.data[offset:offset+n], unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("mapped: madvise %s: %w", mf.path, err)
	}
	return nil
}

// Close unmaps and closes the underlying descriptor unconditionally,
// ignoring the reference count. Callers that share a File across
// concurrent holders should use Ref/Unref instead.
func (mf *File) Close() error {
	uerr := mf.unmap()
	cerr := mf.f.Close()
	if uerr != nil {
		return uerr
	}
	return cerr
}

// Ref records an additional holder of mf and returns mf itself, so a
// long-running job can keep the file open past its original owner's
// lifetime. Must be paired with a later Unref.
func (mf *File) Ref() *File {
	mf.refs.Add(1)
	return mf
}

// Unref releases one holder's reference, closing the file once the last
// reference is dropped. Safe to call concurrently with another holder's
// use of the file, since the file only actually closes when the count
// reaches zero.
func (mf *File) Unref() error {
	if mf.refs.Add(-1) == 0 {
		return mf.Close()
	}
	return nil
}

// CopyAt performs a bit-exact copy of an n-byte run from src at src_off
// into mf at dst_off, using copy_file_range when available and falling
// back to a mapped memcpy otherwise. The destination is grown to cover
// dst_off+n first. Concurrent CopyAt calls into the same destination are
// serialized.
func (mf *File) CopyAt(src *File, srcOff, n, dstOff int64) error {
	if n == 0 {
		return nil
	}
	mf.copyMu.Lock()
	defer mf.copyMu.Unlock()
	if mf.mode != ReadWrite {
		return fmt.Errorf("mapped: copyAt into read-only file %s", mf.path)
	}
	if err := mf.grow(dstOff + n); err != nil {
		return fmt.Errorf("mapped: grow %s for copyAt: %w", mf.path, err)
	}

	remaining := n
	so, do := srcOff, dstOff
	for remaining > 0 {
		written, err := unix.CopyFileRange(int(src.f.Fd()), &so, int(mf.f.Fd()), &do, int(remaining), 0)
		if err != nil {
			if remaining == n {
				// Nothing transferred yet; fall back entirely to mapped
				// memcpy (e.g. EXDEV across filesystems, or unsupported).
				return mf.copyAtFallback(src, srcOff, n, dstOff)
			}
			return fmt.Errorf("mapped: copy_file_range %s->%s: %w", src.path, mf.path, err)
		}
		if written == 0 {
			return mf.copyAtFallback(src, srcOff+(n-remaining), remaining, dstOff+(n-remaining))
		}
		remaining -= int64(written)
	}
	// copy_file_range bypasses the mapping; invalidate so subsequent
	// reads through mf.data observe the new bytes.
	return mf.remap(mf.Size())
}

func (mf *File) copyAtFallback(src *File, srcOff, n, dstOff int64) error {
	buf := make([]byte, n)
	if err := src.ReadAt(srcOff, buf); err != nil {
		return fmt.Errorf("mapped: copyAt fallback read %s: %w", src.path, err)
	}
	return mf.WriteAt(dstOff, buf)
}
