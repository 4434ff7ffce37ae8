package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Throttle ThrottleConfig
	MFA      MFAConfig
	Resolver ResolverConfig
	Guard    GuardConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig defines a public type used by authcore APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig defines a public type used by authcore APIs.
//
// MFAConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MFAConfig struct {
	ChallengeTTL time.Duration
	MaxAttempts  int
}

/*
====================================
RESOLVER CONFIG
====================================
*/

// ResolverConfig defines a public type used by authcore APIs.
//
// ResolverConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResolverConfig struct {
	CoalesceWindow time.Duration
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig defines a public type used by authcore APIs.
//
// GuardConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GuardConfig struct {
	LoadingTimeout     time.Duration
	LoginTarget        string
	UnauthorizedTarget string
}

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SurfaceConfig parameterizes one auth surface. The user-facing and
// administrative pipelines are the same design instantiated with
// different SurfaceConfig values.
//
// SurfaceConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SurfaceConfig struct {
	// RequireMFAForRoles lists roles that must complete a second factor
	// before the session is finalized.
	RequireMFAForRoles []Role
	// EligibleRoles restricts which resolved roles the surface treats as
	// authenticated. Empty means every role is eligible.
	EligibleRoles []Role
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Throttle: ThrottleConfig{
			MaxAttempts: 5,
			Cooldown:    5 * time.Minute,
		},
		MFA: MFAConfig{
			ChallengeTTL: 3 * time.Minute,
			MaxAttempts:  3,
		},
		Resolver: ResolverConfig{
			CoalesceWindow: 3 * time.Second,
		},
		Guard: GuardConfig{
			LoadingTimeout:     10 * time.Second,
			LoginTarget:        "/login",
			UnauthorizedTarget: "/unauthorized",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if c.Throttle.MaxAttempts <= 0 {
		return errors.New("Throttle.MaxAttempts must be positive")
	}
	if c.Throttle.Cooldown <= 0 {
		return errors.New("Throttle.Cooldown must be positive")
	}
	if c.MFA.ChallengeTTL <= 0 {
		return errors.New("MFA.ChallengeTTL must be positive")
	}
	if c.MFA.MaxAttempts <= 0 {
		return errors.New("MFA.MaxAttempts must be positive")
	}
	if c.Resolver.CoalesceWindow < 0 {
		return errors.New("Resolver.CoalesceWindow must not be negative")
	}
	if c.Guard.LoadingTimeout <= 0 {
		return errors.New("Guard.LoadingTimeout must be positive")
	}
	if c.Guard.LoginTarget == "" {
		return errors.New("Guard.LoginTarget must be set")
	}
	if c.Guard.UnauthorizedTarget == "" {
		return errors.New("Guard.UnauthorizedTarget must be set")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a deep copy.
	return cfg
}

func cloneSurfaceConfig(cfg SurfaceConfig) SurfaceConfig {
	out := SurfaceConfig{}
	if len(cfg.RequireMFAForRoles) > 0 {
		out.RequireMFAForRoles = append([]Role(nil), cfg.RequireMFAForRoles...)
	}
	if len(cfg.EligibleRoles) > 0 {
		out.EligibleRoles = append([]Role(nil), cfg.EligibleRoles...)
	}
	return out
}
