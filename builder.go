package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/sentralhq/authcore/internal/stores"
	"github.com/sentralhq/authcore/permission"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	clock  Clock

	permissions []string
	roles       map[string][]string

	provider  IdentityProvider
	directory Directory
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider describes the withprovider operation and its observable behavior.
//
// WithProvider may return an error when input validation, dependency calls, or security checks fail.
// WithProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithDirectory describes the withdirectory operation and its observable behavior.
//
// WithDirectory may return an error when input validation, dependency calls, or security checks fail.
// WithDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithRedis wires a Redis client for the MFA challenge store. Without
// it challenges live in process memory, which is fine for single
// instance embedders.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithClock describes the withclock operation and its observable behavior.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithPermissions describes the withpermissions operation and its observable behavior.
//
// WithPermissions may return an error when input validation, dependency calls, or security checks fail.
// WithPermissions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles describes the withroles operation and its observable behavior.
//
// WithRoles may return an error when input validation, dependency calls, or security checks fail.
// WithRoles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("identity provider required")
	}
	if b.directory == nil {
		return nil, errors.New("directory required")
	}

	clock := b.clock
	if clock == nil {
		clock = SystemClock{}
	}

	permissions := b.permissions
	if len(permissions) == 0 {
		permissions = DefaultPermissions()
	}
	roles := b.roles
	if len(roles) == 0 {
		roles = DefaultRoles()
	}

	// -------- PERMISSION REGISTRY --------
	registry := permission.NewRegistry()
	for _, p := range permissions {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	// -------- ROLE TABLE --------
	table := permission.NewTable(registry)
	for roleName, capList := range roles {
		if err := table.RegisterRole(roleName, capList); err != nil {
			return nil, err
		}
	}
	table.Freeze()

	if _, ok := table.Resolve(string(RoleUser)); !ok {
		return nil, errors.New("role table must include the default role")
	}

	// -------- CHALLENGE STORE --------
	var challenge stores.ChallengeStore
	if b.redis != nil {
		challenge = stores.NewRedisChallengeStore(b.redis, "")
	} else {
		challenge = stores.NewMemoryChallengeStore(clock.Now)
	}

	metrics := NewMetrics(cfg.Metrics)
	audit := newAuditDispatcher(cfg.Audit, b.auditSink, "core", clock)
	store := NewStateStore(clock)

	roleRes := newRoleResolver(b.directory, table, metrics)
	resolver := newProfileResolver(b.directory, roleRes, metrics, clock, cfg.Resolver.CoalesceWindow)
	mfa := newMFACoordinator(b.provider, challenge, metrics, clock, cfg.MFA)
	monitor := newLifecycleMonitor(b.provider, resolver, store, audit, metrics)

	return &Manager{
		cfg:       cfg,
		provider:  b.provider,
		directory: b.directory,
		clock:     clock,
		registry:  registry,
		table:     table,
		store:     store,
		resolver:  resolver,
		roles:     roleRes,
		mfa:       mfa,
		monitor:   monitor,
		guard:     NewGuard(cfg.Guard),
		audit:     audit,
		metrics:   metrics,
		challenge: challenge,
	}, nil
}
