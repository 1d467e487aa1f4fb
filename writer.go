package opencubes

import (
	"fmt"
	"os"
	"sync"

	atomicfile "github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"github.com/nsch0e/opencubes/internal/mapped"
)

// WriterWorkers is the default fixed worker-pool size, matching
// original_source/cpp/include/newCache.hpp's CacheWriter(num_threads)
// default of 8.
const WriterWorkers = 8

type copyJob struct {
	dstFile  *mapped.File
	srcFile  *mapped.File
	srcLen   int64
	dstOff   int64
	rmPath   string
	shardRef *SwapSet
}

// Writer is the background splicing finalizer that turns a completed
// ShardedIndex into one cache file. Grounded on
// original_source/cpp/src/newCache.cpp's CacheWriter: a fixed worker
// pool draining two FIFO queues (copy jobs ahead of flush jobs), a mutex
// plus two condition variables coordinating workers and the caller, and
// backpressure bounding the pending-copy backlog to the worker count.
type Writer struct {
	mu   sync.Mutex
	run  *sync.Cond
	wait *sync.Cond

	copyQ   []copyJob
	flushQ  []func()
	nCopy   int
	nFlush  int
	active  bool
	workers int
	wg      sync.WaitGroup
}

// NewWriter starts a Writer with the given fixed worker count.
func NewWriter(workers int) *Writer {
	w := &Writer{workers: workers, active: true}
	w.run = sync.NewCond(&w.mu)
	w.wait = sync.NewCond(&w.mu)
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.runWorker()
	}
	return w
}

func (w *Writer) runWorker() {
	defer w.wg.Done()
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.active {
		if len(w.copyQ) > 0 {
			job := w.copyQ[0]
			w.copyQ = w.copyQ[1:]
			w.mu.Unlock()
			runCopyJob(job)
			w.mu.Lock()
			w.nCopy--
			w.wait.Broadcast()
			continue
		}
		// A flush job only starts once no copy job is queued or running,
		// so it never truncates or closes a file a copy is still writing.
		if len(w.flushQ) > 0 && w.nCopy == 0 {
			job := w.flushQ[0]
			w.flushQ = w.flushQ[1:]
			w.mu.Unlock()
			job()
			w.mu.Lock()
			w.nFlush--
			w.wait.Broadcast()
			continue
		}
		w.wait.Broadcast()
		w.run.Wait()
	}
	w.wait.Broadcast()
}

// runCopyJob holds its own reference to job.srcFile (taken by Save via
// CubeStorage.File()) for the duration of the splice, so a concurrent
// CubeStorage.Discard on the same storage only drops Discard's own
// reference and never closes the file out from under CopyAt. The
// reference is always released on return, which is what allows the
// file to actually close and the backing path to be safely removed.
func runCopyJob(job copyJob) {
	defer job.srcFile.Unref()
	if err := job.dstFile.CopyAt(job.srcFile, 0, job.srcLen, job.dstOff); err != nil {
		log.Error().Err(err).Str("src", job.rmPath).Msg("Writer: splice copy failed")
		return
	}
	if job.rmPath != "" {
		if err := os.Remove(job.rmPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", job.rmPath).Msg("Writer: failed to remove spliced storage file")
		}
	}
}

// Save schedules the finalization of idx (for cubes of size n) into a
// cache file at path. It writes the header and shape table synchronously,
// enqueues one splice copy job per nonempty shard (discarding that
// shard's storage so its file can be deleted once the copy completes),
// blocks only while the copy backlog exceeds the worker count, then
// hands the final truncate+rename off to the flush queue and returns.
// Callers that need the file to exist on disk before returning must call
// w.Flush() afterward.
func (w *Writer) Save(path string, idx ShapeSource, n int) error {
	if idx.Size() == 0 {
		return nil
	}

	tmpPath := path + ".tmp"
	f, err := mapped.Open(tmpPath, mapped.ReadWrite, mapped.Create|mapped.Resize, headerSize)
	if err != nil {
		return fmt.Errorf("opencubes: writer: open %s: %w", tmpPath, err)
	}

	shapes := idx.Shapes()

	header, err := mapped.NewStructRegion[CacheHeader, *CacheHeader](f, 0)
	if err != nil {
		f.Close()
		return err
	}
	header.Set(CacheHeader{
		Magic:        CacheMagic,
		N:            uint32(n),
		NumShapes:    uint32(len(shapes)),
		NumPolycubes: uint64(idx.Size()),
	})
	if err := header.Flush(); err != nil {
		f.Close()
		return err
	}

	table, err := mapped.NewArrayRegion[ShapeEntry, *ShapeEntry](f, header.GetEndSeek(), len(shapes))
	if err != nil {
		f.Close()
		return err
	}

	slices.SortFunc(shapes, func(a, b Shape) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})

	offset := table.GetEndSeek() + crc32Size
	type pendingShard struct {
		shard  *SwapSet
		dstOff int64
	}
	var pending []pendingShard

	for i, shape := range shapes {
		entry := ShapeEntry{Dim0: shape.Dx, Dim1: shape.Dy, Dim2: shape.Dz, Offset: uint64(offset)}
		shardArr := idx.Shards(shape)
		put := offset
		for _, shard := range shardArr {
			count := int64(shard.Size())
			if count == 0 {
				continue
			}
			pending = append(pending, pendingShard{shard: shard, dstOff: put})
			put += count * int64(n) * 3
		}
		entry.SizeBytes = uint64(put - offset)
		table.Set(i, entry)
		offset = put
	}
	if err := table.Flush(); err != nil {
		f.Close()
		return err
	}

	if err := writeCRC32Trailer(f, 0, table.GetEndSeek()); err != nil {
		f.Close()
		return err
	}

	fileEnd := offset

	w.mu.Lock()
	for _, p := range pending {
		storage := p.shard.Storage()
		srcFile := storage.File()
		if srcFile == nil {
			continue
		}
		w.copyQ = append(w.copyQ, copyJob{
			dstFile: f,
			srcFile: srcFile,
			srcLen:  storage.Len() * storage.RecordSize(),
			dstOff:  p.dstOff,
			rmPath:  storage.Path(),
		})
		w.nCopy++
	}
	w.run.Broadcast()
	for w.nCopy > w.workers {
		w.wait.Wait()
	}
	w.mu.Unlock()

	// Discard drops each spliced shard's own reference to its storage
	// file; it is safe to do this without waiting for the corresponding
	// copy job to finish, since the job took its own reference via
	// storage.File() and the file only actually closes (and its path is
	// only removed) once that job's runCopyJob releases it.
	for _, p := range pending {
		if err := p.shard.Storage().Discard(); err != nil {
			log.Warn().Err(err).Msg("Writer: discard after splice failed")
		}
	}

	w.mu.Lock()
	w.flushQ = append(w.flushQ, func() {
		if err := f.Truncate(fileEnd); err != nil {
			log.Error().Err(err).Str("path", tmpPath).Msg("Writer: final truncate failed")
			return
		}
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("path", tmpPath).Msg("Writer: final close failed")
			return
		}
		if err := atomicfile.ReplaceFile(tmpPath, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Writer: atomic rename failed")
		}
	})
	w.nFlush++
	w.run.Broadcast()
	w.mu.Unlock()

	return nil
}

// Flush blocks until every pending flush job (and transitively every
// copy job that preceded it) has completed.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.nFlush > 0 {
		w.wait.Wait()
	}
}

// Close drains pending jobs, then stops the worker pool. Mirrors the
// teacher's CacheWriter destructor: flush first, then active=false plus
// a broadcast, then join every worker.
func (w *Writer) Close() {
	w.Flush()
	w.mu.Lock()
	w.active = false
	w.run.Broadcast()
	w.mu.Unlock()
	w.wg.Wait()
}
