package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentralhq/authcore/internal/stores"
	"github.com/sentralhq/authcore/session"
)

// PendingChallenge is the externally visible view of an in-flight MFA
// challenge: enough to render a verification form, nothing secret.
type PendingChallenge struct {
	ChallengeID       string
	FactorID          string
	AttemptsRemaining int
}

// mfaCoordinator owns the challenge lifecycle between a successful
// credential check and session finalization. Challenges are single-use
// with a TTL and a bounded attempt count; verification failures are
// counted here, never against the login throttle.
type mfaCoordinator struct {
	provider IdentityProvider
	store    stores.ChallengeStore
	metrics  *Metrics
	clock    Clock
	cfg      MFAConfig
}

func newMFACoordinator(
	provider IdentityProvider,
	store stores.ChallengeStore,
	metrics *Metrics,
	clock Clock,
	cfg MFAConfig,
) *mfaCoordinator {
	return &mfaCoordinator{
		provider: provider,
		store:    store,
		metrics:  metrics,
		clock:    clock,
		cfg:      cfg,
	}
}

// Begin asks the provider for a challenge against the user's enrolled
// factor and records it with the configured TTL. Starting a new
// challenge supersedes any pending one for the caller.
func (c *mfaCoordinator) Begin(ctx context.Context, subjectID, factorID string) (*PendingChallenge, error) {
	if factorID == "" {
		return nil, ErrMFAUnavailable
	}

	result, err := c.provider.ChallengeMFA(ctx, factorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
	}

	record := &stores.ChallengeRecord{
		FactorID:  factorID,
		Subject:   subjectID,
		ExpiresAt: c.clock.Now().Add(c.cfg.ChallengeTTL).Unix(),
	}
	if err := c.store.Save(ctx, result.ChallengeID, record, c.cfg.ChallengeTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
	}

	c.metrics.Inc(MetricMFARequired)
	return &PendingChallenge{
		ChallengeID:       result.ChallengeID,
		FactorID:          factorID,
		AttemptsRemaining: c.cfg.MaxAttempts,
	}, nil
}

// Verify submits a code for the pending challenge. On success the
// challenge record is deleted before the session is returned, so a
// replay of the same challenge ID cannot succeed twice.
func (c *mfaCoordinator) Verify(ctx context.Context, challengeID, code string) (*session.Session, error) {
	record, err := c.store.Get(ctx, challengeID)
	if err != nil {
		return nil, mapChallengeStoreError(err)
	}

	sess, err := c.provider.VerifyMFA(ctx, record.FactorID, challengeID, code)
	if err != nil {
		c.metrics.Inc(MetricMFAFailure)
		exceeded, recErr := c.store.RecordFailure(ctx, challengeID, c.cfg.MaxAttempts)
		if recErr != nil {
			return nil, mapChallengeStoreError(recErr)
		}
		if exceeded {
			return nil, ErrMFAAttemptsExceeded
		}
		return nil, fmt.Errorf("%w: %v", ErrMFAVerificationFailed, err)
	}

	if _, err := c.store.Delete(ctx, challengeID); err != nil {
		return nil, mapChallengeStoreError(err)
	}

	c.metrics.Inc(MetricMFASuccess)
	return sess, nil
}

// Abandon discards a pending challenge without verifying it.
func (c *mfaCoordinator) Abandon(ctx context.Context, challengeID string) error {
	existed, err := c.store.Delete(ctx, challengeID)
	if err != nil {
		return mapChallengeStoreError(err)
	}
	if existed {
		c.metrics.Inc(MetricMFAAbandoned)
	}
	return nil
}

// Pending describes the pending operation and its observable behavior.
//
// Pending may return an error when input validation, dependency calls, or security checks fail.
// Pending does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *mfaCoordinator) Pending(ctx context.Context, challengeID string) (*PendingChallenge, error) {
	record, err := c.store.Get(ctx, challengeID)
	if err != nil {
		return nil, mapChallengeStoreError(err)
	}

	remaining := c.cfg.MaxAttempts - int(record.Attempts)
	if remaining < 0 {
		remaining = 0
	}
	return &PendingChallenge{
		ChallengeID:       challengeID,
		FactorID:          record.FactorID,
		AttemptsRemaining: remaining,
	}, nil
}

func mapChallengeStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound):
		return ErrNoActiveChallenge
	case errors.Is(err, stores.ErrChallengeExpired):
		return ErrMFAChallengeExpired
	case errors.Is(err, stores.ErrChallengeExceeded):
		return ErrMFAAttemptsExceeded
	default:
		return fmt.Errorf("%w: %v", ErrMFAUnavailable, err)
	}
}
