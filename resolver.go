package authcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sentralhq/authcore/session"
)

// ResolvedIdentity is the output of one full identity resolution: the
// directory profile plus the role and capability set derived from it.
type ResolvedIdentity struct {
	User       *UserProfile
	Resolution RoleResolution
}

// profileResolver turns a session into a ResolvedIdentity. Concurrent
// resolutions for the same access token collapse into one directory
// round trip, and a completed result is replayed to late callers inside
// the coalesce window so event bursts (sign-in followed immediately by
// a token refresh) do not hammer the directory.
type profileResolver struct {
	directory Directory
	roles     *roleResolver
	metrics   *Metrics
	clock     Clock
	window    time.Duration

	group singleflight.Group

	mu     sync.Mutex
	cached *cachedResolution
}

type cachedResolution struct {
	key       string
	identity  ResolvedIdentity
	expiresAt time.Time
}

func newProfileResolver(
	directory Directory,
	roles *roleResolver,
	metrics *Metrics,
	clock Clock,
	window time.Duration,
) *profileResolver {
	return &profileResolver{
		directory: directory,
		roles:     roles,
		metrics:   metrics,
		clock:     clock,
		window:    window,
	}
}

// Resolve fetches profile and role for the session's subject. The
// session's access token keys both the in-flight collapse and the
// short-lived result cache; a new token always triggers a fresh fetch.
func (r *profileResolver) Resolve(ctx context.Context, sess *session.Session) (ResolvedIdentity, error) {
	if sess == nil || sess.Subject == "" {
		return ResolvedIdentity{}, ErrNotAuthenticated
	}
	key := sess.AccessToken

	if identity, ok := r.lookupCached(key); ok {
		r.metrics.Inc(MetricResolveCoalesced)
		return identity, nil
	}

	start := r.clock.Now()
	result, err, shared := r.group.Do(key, func() (interface{}, error) {
		identity, err := r.fetch(ctx, sess.Subject)
		if err != nil {
			return nil, err
		}
		r.storeCached(key, identity)
		return identity, nil
	})
	if shared {
		r.metrics.Inc(MetricResolveShared)
	}
	if err != nil {
		r.metrics.Inc(MetricResolveFailure)
		return ResolvedIdentity{}, err
	}

	r.metrics.Inc(MetricResolveSuccess)
	r.metrics.Observe(MetricResolveLatency, r.clock.Now().Sub(start))

	identity := result.(ResolvedIdentity)
	return ResolvedIdentity{
		User:       identity.User.Clone(),
		Resolution: identity.Resolution,
	}, nil
}

// Invalidate drops any cached result so the next Resolve hits the
// directory. Called after profile updates and on sign-out.
func (r *profileResolver) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *profileResolver) lookupCached(key string) (ResolvedIdentity, bool) {
	if r.window <= 0 {
		return ResolvedIdentity{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached == nil || r.cached.key != key {
		return ResolvedIdentity{}, false
	}
	if r.clock.Now().After(r.cached.expiresAt) {
		r.cached = nil
		return ResolvedIdentity{}, false
	}
	return ResolvedIdentity{
		User:       r.cached.identity.User.Clone(),
		Resolution: r.cached.identity.Resolution,
	}, true
}

func (r *profileResolver) storeCached(key string, identity ResolvedIdentity) {
	if r.window <= 0 {
		return
	}

	r.mu.Lock()
	r.cached = &cachedResolution{
		key:       key,
		identity:  identity,
		expiresAt: r.clock.Now().Add(r.window),
	}
	r.mu.Unlock()
}

func (r *profileResolver) fetch(ctx context.Context, subjectID string) (ResolvedIdentity, error) {
	profile, err := r.directory.FetchProfile(ctx, subjectID)
	if err != nil {
		return ResolvedIdentity{}, classifyDirectoryError(err)
	}

	resolution, err := r.roles.Resolve(ctx, subjectID)
	if err != nil {
		return ResolvedIdentity{}, classifyDirectoryError(err)
	}

	profile = profile.Clone()
	profile.Role = resolution.Role
	return ResolvedIdentity{
		User:       profile,
		Resolution: resolution,
	}, nil
}

// classifyDirectoryError maps directory failures onto the package
// sentinels. Access denial passes through untouched because it drives
// the forced sign-out policy; everything else becomes a fetch failure.
func classifyDirectoryError(err error) error {
	switch {
	case errors.Is(err, ErrDatabaseAccess):
		return err
	case errors.Is(err, ErrProfileFetch), errors.Is(err, ErrProfileNotFound):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
}
