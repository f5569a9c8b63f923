// Package apperr holds the error kinds shared by the catalog, account and rental
// packages. Callers wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrVideoUnavailable = errors.New("video is not available for rental")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRateLimited      = errors.New("rate limit exceeded")
)
