package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the fixed failure taxonomy the recovery strategist selects
// strategies from. Every failure in the pipeline maps to exactly one kind.
type ErrorKind string

const (
	ErrRateLimit   ErrorKind = "RATE_LIMIT_EXCEEDED"
	ErrNetwork     ErrorKind = "NETWORK_ERROR"
	ErrPermission  ErrorKind = "PERMISSION_DENIED"
	ErrInvalidData ErrorKind = "INVALID_DATA"
	ErrNotFound    ErrorKind = "ITEM_NOT_FOUND"
	ErrDuplicate   ErrorKind = "DUPLICATE_ITEM"
	ErrParse       ErrorKind = "PARSE_ERROR"
	ErrUnknown     ErrorKind = "UNKNOWN_ERROR"
)

// OpError is a structured error carrying an explicit classification wherever
// the producing layer can supply one. The recovery classifier prefers the
// explicit Kind and falls back to substring/status sniffing only for errors
// originating outside this system's control.
type OpError struct {
	Kind    ErrorKind `json:"kind"`
	Status  int       `json:"status,omitempty"` // HTTP status when known
	Message string    `json:"message"`

	// RetryAfter is the upstream-requested wait for rate-limit errors.
	RetryAfter time.Duration `json:"retryAfter,omitempty"`

	wrapped error
}

// NewOpError builds a classified error.
func NewOpError(kind ErrorKind, msg string) *OpError {
	return &OpError{Kind: kind, Message: msg}
}

// WrapOpError classifies an existing error without losing its chain.
func WrapOpError(kind ErrorKind, err error) *OpError {
	if err == nil {
		return nil
	}
	return &OpError{Kind: kind, Message: err.Error(), wrapped: err}
}

func (e *OpError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *OpError) Unwrap() error { return e.wrapped }

// AsOpError extracts an *OpError from an error chain, if present.
func AsOpError(err error) (*OpError, bool) {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
