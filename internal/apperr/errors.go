// Package apperr defines the sentinel errors shared across Laguz.
//
// The remote client classifies every failure into one of the sync
// sentinels below; the engine only ever branches on errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnavailable marks transient I/O: network unreachable, timeout,
	// or a retryable remote status. Operations failing with it are
	// enqueued for later replay.
	ErrUnavailable = errors.New("remote unavailable")

	// ErrDenied marks an authorization or permission rejection. Retrying
	// cannot succeed without a credential change, so the write is dropped
	// rather than requeued.
	ErrDenied = errors.New("permission denied")
)
