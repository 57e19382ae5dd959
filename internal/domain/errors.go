package domain

import "errors"

// Sentinel errors shared across services and handlers. Services wrap these
// with context via fmt.Errorf("...: %w", Err...) and handlers map them to
// HTTP status codes.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("invalid input")
	ErrPaymentRequired = errors.New("payment required")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInternal        = errors.New("internal error")
)
