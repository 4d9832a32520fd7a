package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoCandidates indicates an HTTP source without any usable URL
	ErrNoCandidates = errors.New("no download url available")
)

// TransportError is a network level failure: connection refused, reset,
// truncated body and similar. Always retryable.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is an unexpected response status.
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, http.StatusText(e.Status), e.URL)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPStatusError) Retryable() bool {
	switch e.Status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ValidationError reports a digest mismatch.
type ValidationError struct {
	Check    string
	Expected string
	Actual   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.Check, e.Expected, e.Actual)
}

type SizeMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: expected %d bytes, got %d", e.Expected, e.Actual)
}

type UnsupportedSourceError struct {
	Type string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported source type %q", e.Type)
}

// FilesystemError wraps a local I/O failure on Path.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// UnresolvedReferenceError is returned when an archive reference points at
// an archive that was never materialized.
type UnresolvedReferenceError struct {
	ArchiveID string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("archive %q was not downloaded by this batch", e.ArchiveID)
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func AsSizeMismatch(err error) (*SizeMismatchError, bool) {
	var se *SizeMismatchError
	ok := errors.As(err, &se)
	return se, ok
}

// IsRetryable classifies an attempt failure. Cancellation of the caller's
// context is terminal; an attempt deadline is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return true
	}

	var he *HTTPStatusError
	if errors.As(err, &he) {
		return he.Retryable()
	}

	return errors.Is(err, context.DeadlineExceeded)
}
