package store

import "errors"

// Sentinel errors returned by store operations. Callers branch with
// errors.Is; the wrapped messages carry the address or id involved.
var (
	// ErrNotFound: the address, memory id, or target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the address already exists, or a path blocks the
	// operation (e.g. removing a path that still has children).
	ErrConflict = errors.New("conflict")

	// ErrValidation: the request is malformed and was rejected before any
	// mutation was attempted.
	ErrValidation = errors.New("validation failed")

	// ErrNotOrphan: an orphan-safety check failed at delete time. Not the
	// same as ErrNotFound: the memory exists but regained active paths
	// between the caller's check and the delete.
	ErrNotOrphan = errors.New("memory is not an orphan")

	// ErrBrokenChain: a version-chain walk exceeded its hop bound or
	// revisited a node. Callers display a placeholder instead of failing.
	ErrBrokenChain = errors.New("version chain broken")
)
