package authcore

import (
	"sync"
	"time"
)

// ThrottleStatus is the externally visible view of the login throttle,
// suitable for rendering a countdown or disabling a submit control.
type ThrottleStatus struct {
	FailureCount int
	Locked       bool
	LockedUntil  time.Time
	Remaining    time.Duration
}

// LoginThrottle tracks consecutive failed credential attempts for one
// login surface and locks submissions after the configured limit.
// State is process-local and resets on restart; the limit is a
// client-side brake, not the authoritative rate limit, which stays
// server-side.
type LoginThrottle struct {
	mu          sync.Mutex
	cfg         ThrottleConfig
	clock       Clock
	failures    int
	lockedUntil time.Time
}

// NewLoginThrottle describes the newloginthrottle operation and its observable behavior.
//
// NewLoginThrottle may return an error when input validation, dependency calls, or security checks fail.
// NewLoginThrottle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewLoginThrottle(cfg ThrottleConfig, clock Clock) *LoginThrottle {
	if clock == nil {
		clock = SystemClock{}
	}
	return &LoginThrottle{cfg: cfg, clock: clock}
}

// Allow reports whether a login attempt may proceed right now. An
// expired lock clears the failure count as a side effect, so the next
// failure starts a fresh window.
func (t *LoginThrottle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()
	return t.lockedUntil.IsZero()
}

// RecordFailure registers one failed credential attempt and reports
// whether the throttle is now locked.
func (t *LoginThrottle) RecordFailure() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()
	if !t.lockedUntil.IsZero() {
		return true
	}

	t.failures++
	if t.failures >= t.cfg.MaxAttempts {
		t.lockedUntil = t.clock.Now().Add(t.cfg.Cooldown)
		return true
	}
	return false
}

// Reset clears all throttle state. Called on successful authentication.
func (t *LoginThrottle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failures = 0
	t.lockedUntil = time.Time{}
}

// Status describes the status operation and its observable behavior.
//
// Status may return an error when input validation, dependency calls, or security checks fail.
// Status does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *LoginThrottle) Status() ThrottleStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()
	status := ThrottleStatus{
		FailureCount: t.failures,
		LockedUntil:  t.lockedUntil,
	}
	if !t.lockedUntil.IsZero() {
		status.Locked = true
		status.Remaining = t.lockedUntil.Sub(t.clock.Now())
	}
	return status
}

// expireLocked clears an elapsed lock. Caller must hold t.mu.
func (t *LoginThrottle) expireLocked() {
	if !t.lockedUntil.IsZero() && !t.clock.Now().Before(t.lockedUntil) {
		t.failures = 0
		t.lockedUntil = time.Time{}
	}
}
