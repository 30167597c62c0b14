// Package apperr defines sentinel errors shared across layers. Only
// ErrNotFound is ever surfaced to a remote caller; everything else is
// absorbed locally with a log record.
package apperr

import "errors"

// ErrNotFound reports that a requested prompt does not exist.
var ErrNotFound = errors.New("not found")
