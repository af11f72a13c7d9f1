package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Recovery and reset flow errors
	ErrRecoveryExpired  = errors.New("recovery session expired or invalid")
	ErrWrongAnswer      = errors.New("incorrect security answer")
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrBadHeader wraps ErrBadRequest so handlers map it to 400 while
	// callers can still tell a header abort from a malformed row.
	ErrBadHeader = fmt.Errorf("%w: invalid CSV header", ErrBadRequest)
)
