// Package opencubes implements the out-of-core deduplicating set
// infrastructure used to enumerate free polycubes: a memory-mapped file
// substrate, a disk-backed cube set ("swap set") whose keys live in an
// append-only arena, a shape-partitioned sharded index on top of it, and
// the binary cache format used to persist a completed enumeration to disk
// so the next size can resume from it.
//
// The enumeration driver itself — candidate expansion, rotation, and the
// oracle table of known counts — lives in cmd/pcubes and the internal
// rotate/oracle packages; this package is only the storage core those
// pieces drive.
package opencubes
