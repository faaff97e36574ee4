// Package common defines the sentinel errors shared by the store, the
// resolver and the protocol boundaries. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input errors, rejected before any mutation.
	ErrValidation     = errors.New("validation error")
	ErrProtocolDecode = errors.New("protocol decode error")

	// Persistence errors. Never retried silently.
	ErrStorage = errors.New("storage failure")
)
