package mapped

import "golang.org/x/sys/unix"

// mmapFlags are the flags passed to unix.Mmap for shared, read-write
// mappings. MAP_POPULATE pre-faults pages on Linux, avoiding page faults
// on first access during sequential scans of a freshly grown region.
const mmapFlags = unix.MAP_SHARED | unix.MAP_POPULATE
