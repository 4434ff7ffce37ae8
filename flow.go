package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sentralhq/authcore/session"
)

// LoginFlow drives one login form through credentials, optional MFA
// step-up, and finalization into the shared state store. Each form gets
// its own flow so its throttle counts independently, while every flow
// created from the same Manager shares the state store, resolver, and
// challenge store.
type LoginFlow struct {
	provider IdentityProvider
	throttle *LoginThrottle
	mfa      *mfaCoordinator
	resolver *profileResolver
	store    *StateStore
	audit    *auditDispatcher
	metrics  *Metrics
	surface  SurfaceConfig

	mu      sync.Mutex
	pending string
}

// Login exchanges credentials for a session. Three outcomes exist: an
// error, a finalized session, or an MFA-required result carrying the
// challenge the caller must answer via VerifyMFA. Only invalid
// credentials count against the throttle; network and rate-limit
// failures do not burn attempts.
func (f *LoginFlow) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !f.throttle.Allow() {
		f.metrics.Inc(MetricLoginLocked)
		f.audit.emit(auditEventLoginLocked, "", nil)
		return nil, ErrLoginLocked
	}

	// A fresh login supersedes whatever challenge this form still has
	// pending; the superseded challenge must no longer verify.
	f.abandonPending(ctx)

	result, err := f.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		err = classifyProviderError(err)
		if errors.Is(err, ErrInvalidCredentials) {
			f.metrics.Inc(MetricLoginFailure)
			f.audit.emit(auditEventLoginFailure, "", nil)
			if f.throttle.RecordFailure() {
				f.metrics.Inc(MetricLoginLocked)
				f.audit.emit(auditEventLoginLocked, "", nil)
				return nil, ErrLoginLocked
			}
		}
		return nil, err
	}
	if result == nil || result.Session == nil {
		return nil, fmt.Errorf("%w: provider returned no session", ErrUnknown)
	}

	sess, err := session.Normalize(result.Session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	identity, err := f.resolver.Resolve(ctx, sess)
	if err != nil {
		return nil, f.rejectSession(ctx, err)
	}

	if !f.eligible(identity.Resolution.Role) {
		f.audit.emit(auditEventLoginFailure, sess.Subject, map[string]string{
			"cause": "role_not_eligible",
		})
		return nil, f.rejectSession(ctx, ErrUnauthorized)
	}

	if f.requiresMFA(identity.Resolution.Role) {
		if result.User.MFAFactorID == "" {
			return nil, f.rejectSession(ctx, ErrMFAUnavailable)
		}
		challenge, err := f.mfa.Begin(ctx, sess.Subject, result.User.MFAFactorID)
		if err != nil {
			return nil, f.rejectSession(ctx, err)
		}
		f.setPending(challenge.ChallengeID)
		f.audit.emit(auditEventMFARequired, sess.Subject, nil)
		return &LoginResult{
			MFARequired: true,
			MFAType:     "totp",
			ChallengeID: challenge.ChallengeID,
		}, nil
	}

	return f.finalize(sess, identity)
}

// VerifyMFA answers a pending challenge. Wrong codes consume challenge
// attempts, never login-throttle attempts; the challenge's own limit
// bounds the guessing surface.
func (f *LoginFlow) VerifyMFA(ctx context.Context, challengeID, code string) (*LoginResult, error) {
	sess, err := f.mfa.Verify(ctx, challengeID, code)
	if err != nil {
		if errors.Is(err, ErrNoActiveChallenge) ||
			errors.Is(err, ErrMFAChallengeExpired) ||
			errors.Is(err, ErrMFAAttemptsExceeded) {
			f.clearPending(challengeID)
		}
		f.audit.emit(auditEventMFAFailure, "", map[string]string{
			"challenge_id": challengeID,
		})
		return nil, err
	}
	f.clearPending(challengeID)

	sess, err = session.Normalize(sess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	identity, err := f.resolver.Resolve(ctx, sess)
	if err != nil {
		return nil, f.rejectSession(ctx, err)
	}
	if !f.eligible(identity.Resolution.Role) {
		return nil, f.rejectSession(ctx, ErrUnauthorized)
	}

	f.audit.emit(auditEventMFASuccess, sess.Subject, nil)
	return f.finalize(sess, identity)
}

// AbandonMFA discards a pending challenge, leaving the flow signed out.
func (f *LoginFlow) AbandonMFA(ctx context.Context, challengeID string) error {
	if err := f.mfa.Abandon(ctx, challengeID); err != nil {
		return err
	}
	f.clearPending(challengeID)
	f.audit.emit(auditEventMFAAbandoned, "", map[string]string{
		"challenge_id": challengeID,
	})
	return nil
}

func (f *LoginFlow) setPending(challengeID string) {
	f.mu.Lock()
	f.pending = challengeID
	f.mu.Unlock()
}

// clearPending forgets the tracked challenge once it has been consumed,
// but only when it is still the one being tracked.
func (f *LoginFlow) clearPending(challengeID string) {
	f.mu.Lock()
	if f.pending == challengeID {
		f.pending = ""
	}
	f.mu.Unlock()
}

// abandonPending discards the challenge left over from a previous login
// attempt on this form, if any.
func (f *LoginFlow) abandonPending(ctx context.Context) {
	f.mu.Lock()
	pending := f.pending
	f.pending = ""
	f.mu.Unlock()

	if pending == "" {
		return
	}
	if err := f.mfa.Abandon(ctx, pending); err != nil {
		log.Print("authcore: abandoning superseded challenge failed")
		return
	}
	f.audit.emit(auditEventMFAAbandoned, "", map[string]string{
		"challenge_id": pending,
		"cause":        "superseded",
	})
}

// Throttle describes the throttle operation and its observable behavior.
//
// Throttle may return an error when input validation, dependency calls, or security checks fail.
// Throttle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f *LoginFlow) Throttle() ThrottleStatus {
	return f.throttle.Status()
}

func (f *LoginFlow) finalize(sess *session.Session, identity ResolvedIdentity) (*LoginResult, error) {
	f.throttle.Reset()
	f.store.CompleteAuthenticated(identity.User, sess, identity.Resolution.Permissions)
	f.metrics.Inc(MetricLoginSuccess)
	f.audit.emit(auditEventLoginSuccess, sess.Subject, nil)

	return &LoginResult{
		Session: sess.Clone(),
		User:    identity.User.Clone(),
	}, nil
}

// rejectSession tears down a provider session that must not become an
// authenticated state, then returns cause to the caller.
func (f *LoginFlow) rejectSession(ctx context.Context, cause error) error {
	_ = f.provider.SignOut(ctx)
	f.resolver.Invalidate()
	return cause
}

func (f *LoginFlow) eligible(role Role) bool {
	if len(f.surface.EligibleRoles) == 0 {
		return true
	}
	for _, r := range f.surface.EligibleRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (f *LoginFlow) requiresMFA(role Role) bool {
	for _, r := range f.surface.RequireMFAForRoles {
		if r == role {
			return true
		}
	}
	return false
}
