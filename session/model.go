package session

import "time"

// Session defines a public type used by authcore APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	AccessToken  string
	RefreshToken string
	Subject      string
	ExpiresAt    time.Time
}

// Valid reports whether the session can still back an authenticated
// state: the subject is known and expiry is strictly in the future.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Subject == "" {
		return false
	}
	return s.ExpiresAt.After(now)
}

// CanRefresh reports whether the provider handed out a refresh token
// alongside the access token.
func (s *Session) CanRefresh() bool {
	return s != nil && s.RefreshToken != ""
}

// Clone returns a copy so callers can hold a snapshot without aliasing
// the store's session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
