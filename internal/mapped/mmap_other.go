//go:build unix && !linux

package mapped

import "golang.org/x/sys/unix"

// mmapFlags are the flags passed to unix.Mmap for shared, read-write
// mappings. MAP_POPULATE is Linux-only, so other platforms use
// MAP_SHARED alone.
const mmapFlags = unix.MAP_SHARED
