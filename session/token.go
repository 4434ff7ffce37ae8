package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken indicates the access token is not a decodable JWT.
	ErrMalformedToken = errors.New("malformed access token")
	// ErrMissingSubject indicates the token carries no subject claim.
	ErrMissingSubject = errors.New("access token missing subject claim")
	// ErrMissingExpiry indicates the token carries no expiry claim.
	ErrMissingExpiry = errors.New("access token missing expiry claim")
)

// FromAccessToken builds a Session from a provider-issued JWT access
// token. The token is decoded, not verified: signature checks belong to
// the identity provider, while the core only needs subject and expiry
// for its local validity decisions.
func FromAccessToken(accessToken, refreshToken string) (*Session, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if claims.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Subject:      claims.Subject,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// Normalize fills Subject/ExpiresAt from the access token claims when a
// provider handed back a session without them. Sessions that already
// carry both fields are returned unchanged.
func Normalize(s *Session) (*Session, error) {
	if s == nil {
		return nil, nil
	}
	if s.Subject != "" && !s.ExpiresAt.IsZero() {
		return s, nil
	}

	parsed, err := FromAccessToken(s.AccessToken, s.RefreshToken)
	if err != nil {
		return nil, err
	}
	filled := s.Clone()
	if filled.Subject == "" {
		filled.Subject = parsed.Subject
	}
	if filled.ExpiresAt.IsZero() {
		filled.ExpiresAt = parsed.ExpiresAt
	}
	return filled, nil
}
