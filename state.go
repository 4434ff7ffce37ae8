package authcore

import (
	"sync"
	"time"

	"github.com/sentralhq/authcore/permission"
	"github.com/sentralhq/authcore/session"
)

// AuthState defines a public type used by authcore APIs.
//
// AuthState instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuthState struct {
	User          *UserProfile
	Session       *session.Session
	Permissions   permission.Set
	Loading       bool
	Err           error
	Initialized   bool
	Authenticated bool
	// LoadStartedAt is the wall time of the most recent BeginLoad, used
	// by the guard's loading-timeout rule. Zero when not loading.
	LoadStartedAt time.Time
}

// Clone describes the clone operation and its observable behavior.
//
// Clone may return an error when input validation, dependency calls, or security checks fail.
// Clone does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s AuthState) Clone() AuthState {
	out := s
	out.User = s.User.Clone()
	out.Session = s.Session.Clone()
	return out
}

// Subscriber receives state snapshots. Callbacks run synchronously on
// the mutating goroutine, after the store's lock is released, in
// registration order.
type Subscriber func(state AuthState)

// StateStore holds the single authoritative auth snapshot and notifies
// subscribers on every transition. All mutating operations replace the
// snapshot atomically; readers always observe a complete state, never a
// half-applied transition.
type StateStore struct {
	mu          sync.Mutex
	state       AuthState
	subscribers []subscriberEntry
	nextID      int
	clock       Clock
}

type subscriberEntry struct {
	id int
	fn Subscriber
}

// NewStateStore creates a store holding the default unauthenticated
// shape: no user, no session, empty permissions, not loading, no
// error, not initialized.
func NewStateStore(clock Clock) *StateStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StateStore{clock: clock}
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot may return an error when input validation, dependency calls, or security checks fail.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *StateStore) Snapshot() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state.Clone()
	// A session past its expiry never reads as authenticated, even
	// before a lifecycle event arrives to retire it.
	if state.Authenticated && !state.Session.Valid(s.clock.Now()) {
		state.Authenticated = false
	}
	return state
}

// Subscribe describes the subscribe operation and its observable behavior.
//
// Subscribe may return an error when input validation, dependency calls, or security checks fail.
// Subscribe does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *StateStore) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers = append(s.subscribers, subscriberEntry{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.subscribers {
			if entry.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// BeginLoad describes the beginload operation and its observable behavior.
//
// BeginLoad may return an error when input validation, dependency calls, or security checks fail.
// BeginLoad does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *StateStore) BeginLoad() {
	s.mutate(func(state *AuthState) {
		state.Loading = true
		state.Err = nil
		state.LoadStartedAt = s.clock.Now()
	})
}

// CompleteAuthenticated describes the completeauthenticated operation and its observable behavior.
//
// CompleteAuthenticated may return an error when input validation, dependency calls, or security checks fail.
// CompleteAuthenticated does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *StateStore) CompleteAuthenticated(user *UserProfile, sess *session.Session, perms permission.Set) {
	// A session already past its expiry must not become an authenticated
	// state, however it reached this point.
	if !sess.Valid(s.clock.Now()) {
		s.CompleteUnauthenticated(ErrSessionExpired)
		return
	}
	s.mutate(func(state *AuthState) {
		state.User = user.Clone()
		state.Session = sess.Clone()
		state.Permissions = perms
		state.Loading = false
		state.Err = nil
		state.Initialized = true
		state.Authenticated = true
		state.LoadStartedAt = time.Time{}
	})
}

// CompleteUnauthenticated describes the completeunauthenticated operation and its observable behavior.
//
// CompleteUnauthenticated may return an error when input validation, dependency calls, or security checks fail.
// CompleteUnauthenticated does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *StateStore) CompleteUnauthenticated(err error) {
	s.mutate(func(state *AuthState) {
		*state = AuthState{
			Err:         err,
			Initialized: true,
		}
	})
}

// ClearError describes the clearerror operation and its observable behavior.
//
// ClearError may return an error when input validation, dependency calls, or security checks fail.
// ClearError does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *StateStore) ClearError() {
	s.mutate(func(state *AuthState) {
		state.Err = nil
	})
}

// mutate applies fn under the lock, then notifies subscribers with the
// new snapshot after the lock is released so a subscriber may call back
// into the store without deadlocking.
func (s *StateStore) mutate(fn func(state *AuthState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	subs := make([]subscriberEntry, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, entry := range subs {
		entry.fn(snapshot.Clone())
	}
}
