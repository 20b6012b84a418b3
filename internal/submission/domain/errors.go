package domain

import "errors"

var (
	// ErrNotFound means no row in either store matches the token or number.
	ErrNotFound = errors.New("submission not found")
	// ErrStoreUnavailable means a backing store could not be read or written.
	// Callers must be able to distinguish "no such token" from "can't check
	// right now".
	ErrStoreUnavailable = errors.New("submission store unavailable")
	// ErrMalformedData flags a stored value that does not parse as expected.
	// Scans skip the offending row and report it, never abort.
	ErrMalformedData = errors.New("malformed stored data")

	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidClientName = errors.New("invalid_client_name")
	ErrInvalidFile       = errors.New("invalid_file")
	ErrAlreadyDecided    = errors.New("submission already decided")
)
