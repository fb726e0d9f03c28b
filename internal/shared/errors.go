package shared

import "errors"

var (
	// ErrCSRFTokenMissing occurs when the request or the session lacks a token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the submitted token differs from the stored one.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrCSRFTokenStale occurs when the token was issued before the session id rotated.
	ErrCSRFTokenStale = errors.New("csrf token issued for another session")
	// ErrSessionMissing is returned when a handler runs outside the session middleware.
	ErrSessionMissing = errors.New("session missing")
)
