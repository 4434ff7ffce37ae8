package authcore

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication core.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginLocked is an exported constant or variable used by the authentication core.
	ErrLoginLocked = errors.New("login locked out")
	// ErrMFARequired is an exported constant or variable used by the authentication core.
	ErrMFARequired = errors.New("mfa required")
	// ErrMFAVerificationFailed is an exported constant or variable used by the authentication core.
	ErrMFAVerificationFailed = errors.New("mfa verification failed")
	// ErrNoActiveChallenge is an exported constant or variable used by the authentication core.
	ErrNoActiveChallenge = errors.New("no active challenge")
	// ErrMFAChallengeExpired is an exported constant or variable used by the authentication core.
	ErrMFAChallengeExpired = errors.New("mfa challenge expired")
	// ErrMFAAttemptsExceeded is an exported constant or variable used by the authentication core.
	ErrMFAAttemptsExceeded = errors.New("mfa challenge attempts exceeded")
	// ErrMFAUnavailable is an exported constant or variable used by the authentication core.
	ErrMFAUnavailable = errors.New("mfa challenge backend unavailable")
	// ErrProfileFetch is an exported constant or variable used by the authentication core.
	ErrProfileFetch = errors.New("profile fetch failed")
	// ErrProfileNotFound is an exported constant or variable used by the authentication core.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrRoleNotAssigned is an exported constant or variable used by the authentication core.
	ErrRoleNotAssigned = errors.New("role not assigned")
	// ErrDatabaseAccess is an exported constant or variable used by the authentication core.
	ErrDatabaseAccess = errors.New("profile data access denied")
	// ErrNetwork is an exported constant or variable used by the authentication core.
	ErrNetwork = errors.New("network unavailable")
	// ErrRateLimited is an exported constant or variable used by the authentication core.
	ErrRateLimited = errors.New("rate limited by identity provider")
	// ErrUnauthorized is an exported constant or variable used by the authentication core.
	ErrUnauthorized = errors.New("insufficient role or permissions")
	// ErrSessionExpired is an exported constant or variable used by the authentication core.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated is an exported constant or variable used by the authentication core.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrManagerNotReady is an exported constant or variable used by the authentication core.
	ErrManagerNotReady = errors.New("manager not initialized")
	// ErrUnknown is an exported constant or variable used by the authentication core.
	ErrUnknown = errors.New("unknown identity provider error")
)
