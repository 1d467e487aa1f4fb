package opencubes

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Error kinds per the error handling design: NotFound and FormatError are
// recoverable (the caller treats the cache as unloaded and recomputes);
// Invariant and OracleMismatch are fatal and indicate a logic bug or a
// data-loss condition, surfaced to callers as errors but escalated to
// os.Exit only by cmd/pcubes.
var (
	// ErrNotFound means a cache file does not exist. Non-fatal.
	ErrNotFound = errors.New("opencubes: cache not found")

	// ErrFormat means a cache file exists but is malformed: bad magic,
	// truncated header or shape table, or a checksum mismatch. Non-fatal.
	// A file-size mismatch is only logged, not reported as ErrFormat.
	ErrFormat = errors.New("opencubes: malformed cache file")

	// ErrInvariant means a programmer error was detected: a cube whose
	// length doesn't match a storage's record size, an unregistered
	// shape, or an unconnected cube reaching CanonicalForm. Fatal.
	ErrInvariant = errors.New("opencubes: invariant violated")

	// ErrOracleMismatch means a completed enumeration's count does not
	// match the known result table for that N. Fatal.
	ErrOracleMismatch = errors.New("opencubes: oracle mismatch")

	// ErrStale means a CubePtr referred to a storage version that has
	// since been discarded. CubeStorage.Read and Copydata return it instead
	// of the old record, and SwapSet.Insert passes it on to its caller.
	ErrStale = errors.New("opencubes: stale storage version")
)

func wrapInvariant(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvariant, msg)
}

// fatal logs a structured error event and returns it wrapped as
// ErrInvariant, for conditions spec.md §7 calls fatal (commit() on an
// ungrowable file, read() on an out-of-range offset, an unregistered
// shape). The core packages never call os.Exit themselves — only
// cmd/pcubes escalates a returned ErrInvariant to a process exit — so
// this logs at Error, not zerolog's Fatal level (which would exit here).
func fatal(msg string, err error) error {
	log.Error().Err(err).Msg(msg)
	if err == nil {
		return wrapInvariant(msg)
	}
	return fmt.Errorf("%w: %s: %v", ErrInvariant, msg, err)
}
