package authcore

import (
	"context"
	"fmt"
	"sync"

	"github.com/sentralhq/authcore/internal/stores"
	"github.com/sentralhq/authcore/permission"
	"github.com/sentralhq/authcore/session"
)

// Manager is the assembled authentication core: one state store, one
// resolver pipeline, one lifecycle monitor, shared by every surface
// carved from it. Construct it through the Builder, call Start once,
// and Close when the embedding process shuts down.
type Manager struct {
	cfg       Config
	provider  IdentityProvider
	directory Directory
	clock     Clock

	registry *permission.Registry
	table    *permission.Table

	store     *StateStore
	resolver  *profileResolver
	roles     *roleResolver
	mfa       *mfaCoordinator
	monitor   *lifecycleMonitor
	guard     *Guard
	audit     *auditDispatcher
	metrics   *Metrics
	challenge stores.ChallengeStore

	mu      sync.Mutex
	started bool
	closed  bool
}

// Start begins lifecycle monitoring and performs the initial session
// probe. Until Start runs the state remains uninitialized and the guard
// answers ActionShowLoading.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerNotReady
	}
	if m.started {
		return nil
	}
	m.started = true
	m.monitor.Start(ctx)
	return nil
}

// Close stops the monitor and drains the audit dispatcher. The Manager
// cannot be restarted after Close.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	m.mu.Unlock()

	if started {
		m.monitor.Stop()
	}
	m.audit.close()
	return nil
}

// State describes the state operation and its observable behavior.
//
// State may return an error when input validation, dependency calls, or security checks fail.
// State does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) State() AuthState {
	return m.store.Snapshot()
}

// Subscribe describes the subscribe operation and its observable behavior.
//
// Subscribe may return an error when input validation, dependency calls, or security checks fail.
// Subscribe does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Subscribe(fn Subscriber) (unsubscribe func()) {
	return m.store.Subscribe(fn)
}

// ClearError describes the clearerror operation and its observable behavior.
//
// ClearError may return an error when input validation, dependency calls, or security checks fail.
// ClearError does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) ClearError() {
	m.store.ClearError()
}

// Guard describes the guard operation and its observable behavior.
//
// Guard may return an error when input validation, dependency calls, or security checks fail.
// Guard does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Guard() *Guard {
	return m.guard
}

// View carves a surface out of the shared core. The zero SurfaceConfig
// yields an unrestricted user surface; an administrative surface names
// its eligible roles and MFA policy.
func (m *Manager) View(surface SurfaceConfig) *View {
	return &View{
		manager: m,
		surface: cloneSurfaceConfig(surface),
	}
}

// NewLoginFlow creates a login flow with no surface restrictions.
// Restricted surfaces create flows through their View instead.
func (m *Manager) NewLoginFlow() *LoginFlow {
	return m.newLoginFlow(SurfaceConfig{})
}

func (m *Manager) newLoginFlow(surface SurfaceConfig) *LoginFlow {
	return &LoginFlow{
		provider: m.provider,
		throttle: NewLoginThrottle(m.cfg.Throttle, m.clock),
		mfa:      m.mfa,
		resolver: m.resolver,
		store:    m.store,
		audit:    m.audit,
		metrics:  m.metrics,
		surface:  cloneSurfaceConfig(surface),
	}
}

// Logout terminates the current session everywhere: the provider is
// told to sign out, local caches are invalidated, and the state resets
// to the unauthenticated shape even when the provider call fails.
func (m *Manager) Logout(ctx context.Context) error {
	subject := subjectOf(m.store.Snapshot().Session)

	err := m.provider.SignOut(ctx)
	m.resolver.Invalidate()
	m.store.CompleteUnauthenticated(nil)
	m.metrics.Inc(MetricSignedOut)
	m.audit.emit(auditEventSignedOut, subject, nil)

	if err != nil {
		return classifyProviderError(err)
	}
	return nil
}

// RefreshSession forces a token refresh and re-runs resolution with the
// new session.
func (m *Manager) RefreshSession(ctx context.Context) error {
	sess, err := m.provider.RefreshSession(ctx)
	if err != nil {
		return classifyProviderError(err)
	}
	if sess == nil {
		return ErrNotAuthenticated
	}

	sess, err = session.Normalize(sess)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	identity, err := m.resolver.Resolve(ctx, sess)
	if err != nil {
		return err
	}
	m.store.CompleteAuthenticated(identity.User, sess, identity.Resolution.Permissions)
	m.metrics.Inc(MetricSessionRefreshed)
	m.audit.emit(auditEventTokenRefreshed, sess.Subject, nil)
	return nil
}

// UpdateProfile writes the given fields for the signed-in user and
// refreshes the in-memory profile without a loading transition. The
// resolved role never changes here; role changes only arrive through
// the directory.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*UserProfile, error) {
	state := m.store.Snapshot()
	if !state.Authenticated || state.Session == nil {
		return nil, ErrNotAuthenticated
	}

	updated, err := m.directory.UpdateProfile(ctx, state.Session.Subject, update)
	if err != nil {
		return nil, classifyDirectoryError(err)
	}

	updated = updated.Clone()
	updated.Role = state.User.Role
	m.resolver.Invalidate()
	m.store.CompleteAuthenticated(updated, state.Session, state.Permissions)
	m.audit.emit(auditEventProfileUpdated, state.Session.Subject, nil)
	return updated.Clone(), nil
}

// SignUp registers a new identity with the provider. When the provider
// signs the new user in immediately, the resulting lifecycle event
// flows through the monitor like any other sign-in.
func (m *Manager) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*SignInResult, error) {
	result, err := m.provider.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return result, nil
}

// Metrics describes the metrics operation and its observable behavior.
//
// Metrics may return an error when input validation, dependency calls, or security checks fail.
// Metrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.dropped()
}
