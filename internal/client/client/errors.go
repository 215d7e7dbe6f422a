package client

import "errors"

var (
	ErrUnavailable   = errors.New("remote store unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTimeout       = errors.New("remote call timed out")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrNotFound      = errors.New("listing not found")
	ErrNotSignedIn   = errors.New("not signed in")
)
