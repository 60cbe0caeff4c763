package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrValidation     = errors.New("validation error")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	// Gateway errors.
	ErrUnconfigured       = errors.New("storage gateway is not configured")
	ErrTransport          = errors.New("transport error")
	ErrSuspectedFiltering = errors.New("suspected access filtering")
	ErrMalformedResponse  = errors.New("malformed upstream response")
	ErrUploadFailed       = errors.New("upload failed")
	ErrDeleteFailed       = errors.New("delete failed")
	ErrListFailed         = errors.New("list failed")
)

// OperationError carries the upstream status and body of a failed bucket
// operation. Err is one of the sentinels above so callers can use errors.Is.
type OperationError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Err)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Body != "" {
		msg += ": " + truncate(e.Body, 512)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
