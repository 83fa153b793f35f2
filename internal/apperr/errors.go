// Package apperr defines the error kinds shared across tempo packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownFormatter = errors.New("unknown formatter")

	// ErrLayoutConflict marks a window operation refused by the host because
	// another layout change (typically a window close) is in progress.
	ErrLayoutConflict = errors.New("layout change in progress")
)
