package authcore

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/sentralhq/authcore/session"
)

// lifecycleMonitor subscribes to provider lifecycle notifications and
// drives the state store through the resolution pipeline. Events are
// processed strictly in arrival order on a single worker goroutine;
// each event is stamped with an increasing sequence number, and a
// resolution whose event has been superseded by a newer one is
// discarded rather than applied.
type lifecycleMonitor struct {
	provider IdentityProvider
	resolver *profileResolver
	store    *StateStore
	audit    *auditDispatcher
	metrics  *Metrics

	seq     atomic.Uint64
	events  chan lifecycleItem
	stopped chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	unsub     func()
}

type lifecycleItem struct {
	seq   uint64
	event LifecycleEvent
	sess  *session.Session
}

func newLifecycleMonitor(
	provider IdentityProvider,
	resolver *profileResolver,
	store *StateStore,
	audit *auditDispatcher,
	metrics *Metrics,
) *lifecycleMonitor {
	return &lifecycleMonitor{
		provider: provider,
		resolver: resolver,
		store:    store,
		audit:    audit,
		metrics:  metrics,
		events:   make(chan lifecycleItem, 64),
		stopped:  make(chan struct{}),
	}
}

// Start registers with the provider and performs the initial session
// probe that transitions the store out of its uninitialized state.
func (m *lifecycleMonitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run()
		m.unsub = m.provider.OnAuthStateChange(m.Handle)
		m.bootstrap(ctx)
	})
}

// Stop unsubscribes from the provider and drains the worker. Events
// enqueued after Stop are dropped.
func (m *lifecycleMonitor) Stop() {
	m.stopOnce.Do(func() {
		if m.unsub != nil {
			m.unsub()
		}
		close(m.events)
		<-m.stopped
	})
}

// Handle is the provider callback. It never blocks the provider's
// notification goroutine beyond a buffered channel send.
func (m *lifecycleMonitor) Handle(event LifecycleEvent, sess *session.Session) {
	m.enqueue(lifecycleItem{
		seq:   m.seq.Add(1),
		event: event,
		sess:  sess.Clone(),
	})
}

// enqueue hands an item to the worker. Sends after Stop lose the event;
// the subscription is already torn down so this only covers a racing
// callback.
func (m *lifecycleMonitor) enqueue(item lifecycleItem) {
	defer func() {
		_ = recover()
	}()
	m.events <- item
}

// bootstrap resolves whatever session the provider already holds, so an
// embedder restarting with a persisted session lands authenticated
// without waiting for a lifecycle event. The probe travels through the
// worker queue like any other event: the single consumer serializes it
// against lifecycle events racing the startup, and a sign-out arriving
// behind the probe supersedes it via the sequence check.
func (m *lifecycleMonitor) bootstrap(ctx context.Context) {
	m.store.BeginLoad()

	sess, err := m.provider.GetSession(ctx)
	if err != nil {
		sess = nil
	}
	m.enqueue(lifecycleItem{seq: m.seq.Add(1), event: EventSignedIn, sess: sess})
}

func (m *lifecycleMonitor) run() {
	defer close(m.stopped)
	ctx := context.Background()
	for item := range m.events {
		m.apply(ctx, item)
	}
}

func (m *lifecycleMonitor) apply(ctx context.Context, item lifecycleItem) {
	switch item.event {
	case EventSignedOut, EventUserDeleted:
		m.resolver.Invalidate()
		m.store.CompleteUnauthenticated(nil)
		m.metrics.Inc(MetricSignedOut)
		m.audit.emit(auditEventSignedOut, subjectOf(item.sess), nil)

	case EventSignedIn, EventTokenRefreshed:
		if item.sess == nil {
			m.store.CompleteUnauthenticated(nil)
			return
		}
		if item.event == EventTokenRefreshed {
			m.metrics.Inc(MetricSessionRefreshed)
			m.audit.emit(auditEventTokenRefreshed, subjectOf(item.sess), nil)
		}
		m.store.BeginLoad()
		m.resolve(ctx, item, true)

	case EventUserUpdated:
		if item.sess == nil {
			return
		}
		// Profile edits refresh data in place: no loading flicker, and a
		// failed refresh keeps the last known good state.
		m.resolver.Invalidate()
		m.resolve(ctx, item, false)

	default:
		log.Print("authcore: ignoring unknown lifecycle event")
	}
}

// resolve runs the identity pipeline for one event and applies the
// outcome unless a newer event has arrived meanwhile.
func (m *lifecycleMonitor) resolve(ctx context.Context, item lifecycleItem, transition bool) {
	sess, err := session.Normalize(item.sess)
	if err != nil {
		if !transition {
			log.Print("authcore: session normalization failed, keeping previous state")
			return
		}
		m.store.CompleteUnauthenticated(err)
		return
	}

	identity, err := m.resolver.Resolve(ctx, sess)

	if m.stale(item.seq) {
		m.metrics.Inc(MetricResolveDiscardedStale)
		return
	}

	if err != nil {
		if errors.Is(err, ErrDatabaseAccess) {
			// The subject cannot read its own records: the session is
			// considered poisoned and is terminated outright.
			m.forceSignOut(ctx, sess)
			return
		}
		if !transition {
			log.Print("authcore: profile refresh failed, keeping previous state")
			return
		}
		m.store.CompleteUnauthenticated(err)
		return
	}

	m.store.CompleteAuthenticated(identity.User, sess, identity.Resolution.Permissions)
	if identity.Resolution.Fallback {
		m.audit.emit(auditEventRoleFallback, sess.Subject, nil)
	}
}

func (m *lifecycleMonitor) forceSignOut(ctx context.Context, sess *session.Session) {
	if err := m.provider.SignOut(ctx); err != nil {
		log.Print("authcore: provider sign-out failed during forced sign-out")
	}
	m.resolver.Invalidate()
	m.store.CompleteUnauthenticated(nil)
	m.metrics.Inc(MetricForcedSignOut)
	m.audit.emit(auditEventForcedSignOut, subjectOf(sess), map[string]string{
		"cause": "database_access_denied",
	})
}

// stale reports whether a newer event has been enqueued since seq.
func (m *lifecycleMonitor) stale(seq uint64) bool {
	return m.seq.Load() > seq
}

func subjectOf(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.Subject
}
