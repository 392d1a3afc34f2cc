package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// Registration workflow outcomes. Each is a distinct, user-explainable
	// failure rather than a generic one (re-clicking a stale link, racing a
	// partner's submission, completing too early).
	ErrExpired                = errors.New("expired")
	ErrAlreadyConsumed        = errors.New("already consumed")
	ErrAlreadyCompleted       = errors.New("already completed")
	ErrVerificationIncomplete = errors.New("verification incomplete")
	ErrWeakCredential         = errors.New("weak credential")
)
