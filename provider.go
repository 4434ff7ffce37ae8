package authcore

import (
	"context"

	"github.com/sentralhq/authcore/session"
)

// LifecycleEvent names the asynchronous session-change notifications
// emitted by the identity provider.
type LifecycleEvent string

const (
	// EventSignedIn is an exported constant or variable used by the authentication core.
	EventSignedIn LifecycleEvent = "SIGNED_IN"
	// EventSignedOut is an exported constant or variable used by the authentication core.
	EventSignedOut LifecycleEvent = "SIGNED_OUT"
	// EventTokenRefreshed is an exported constant or variable used by the authentication core.
	EventTokenRefreshed LifecycleEvent = "TOKEN_REFRESHED"
	// EventUserUpdated is an exported constant or variable used by the authentication core.
	EventUserUpdated LifecycleEvent = "USER_UPDATED"
	// EventUserDeleted is an exported constant or variable used by the authentication core.
	EventUserDeleted LifecycleEvent = "USER_DELETED"
)

// ProviderUser is the minimal identity record the provider returns with
// a successful credential exchange. MFAFactorID is empty when the user
// has no enrolled second factor.
type ProviderUser struct {
	ID          string
	Email       string
	MFAFactorID string
	Metadata    map[string]string
}

// SignInResult is returned by [IdentityProvider.SignInWithPassword] and
// [IdentityProvider.SignUp]. Session may be nil for sign-up flows that
// require confirmation before a session exists.
type SignInResult struct {
	Session *session.Session
	User    ProviderUser
}

// MFAChallengeResult carries the provider-issued challenge identifier.
type MFAChallengeResult struct {
	ChallengeID string
}

// LifecycleHandler receives provider lifecycle notifications.
type LifecycleHandler func(event LifecycleEvent, sess *session.Session)

// IdentityProvider is the contract consumed from the remote
// identity-and-data platform. Implementations should return the
// package's sentinel errors (ErrInvalidCredentials, ErrNetwork,
// ErrRateLimited, ErrSessionExpired) where they apply; anything else is
// classified as ErrUnknown.
//
// Only the contract is consumed here; the wire format is the
// provider's own business.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*SignInResult, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*session.Session, error)
	RefreshSession(ctx context.Context) (*session.Session, error)
	ChallengeMFA(ctx context.Context, factorID string) (*MFAChallengeResult, error)
	VerifyMFA(ctx context.Context, factorID, challengeID, code string) (*session.Session, error)
	OnAuthStateChange(handler LifecycleHandler) (unsubscribe func())
}

// Directory is the profile/role data-store contract. Implementations
// return ErrProfileNotFound / ErrRoleNotAssigned for missing rows and
// ErrDatabaseAccess when the caller's access to its own data is denied;
// the distinction drives the forced sign-out policy.
type Directory interface {
	FetchProfile(ctx context.Context, subjectID string) (*UserProfile, error)
	FetchRoleAssignment(ctx context.Context, subjectID string) (string, error)
	UpdateProfile(ctx context.Context, subjectID string, update ProfileUpdate) (*UserProfile, error)
}
