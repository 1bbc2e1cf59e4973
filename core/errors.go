package core

import (
	"errors"
	"fmt"
)

// The error taxonomy every layer maps into. The web layer turns these into
// transport status codes; nothing below it returns anything finer-grained to
// callers. In particular ErrForbidden deliberately covers forged, expired,
// mismatched and reused tokens alike.
var (
	// ErrInvalidRequest marks a malformed or out-of-bound input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrForbidden marks a token that failed validation for any reason.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks an update that would drive a score negative or past
	// the configured cap.
	ErrConflict = errors.New("conflict")
	// ErrStorageUnavailable marks a transient backend failure; retried
	// internally and only surfaced once the retry budget is spent.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound marks a reference to an unknown user or category where
	// existence is required.
	ErrNotFound = errors.New("not found")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// WrapInvalid attaches detail to ErrInvalidRequest.
func WrapInvalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidRequest, msg) }

// WrapConflict attaches detail to ErrConflict.
func WrapConflict(msg string) error { return fmt.Errorf("%w: %s", ErrConflict, msg) }

// WrapStorage attaches an underlying cause to ErrStorageUnavailable.
func WrapStorage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
