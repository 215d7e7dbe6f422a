package models

import "time"

// Session is the authenticated identity the remote store acts for.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IdentityEventKind names an identity transition.
type IdentityEventKind string

const (
	SignedIn        IdentityEventKind = "signed_in"
	SignedOut       IdentityEventKind = "signed_out"
	SessionRestored IdentityEventKind = "session_restored"
)

// IdentityEvent is delivered to identity subscribers. Session is nil for
// SignedOut.
type IdentityEvent struct {
	Kind    IdentityEventKind
	Session *Session
}
