package authcore

import (
	"io"
	"time"

	internalaudit "github.com/sentralhq/authcore/internal/audit"
	internalmetrics "github.com/sentralhq/authcore/internal/metrics"
	"github.com/sentralhq/authcore/permission"
	"github.com/sentralhq/authcore/session"
)

// Role names form a small closed set. Any role name outside this set in
// the backing data falls under the default-role fallback policy.
type Role string

const (
	// RoleUser is an exported constant or variable used by the authentication core.
	RoleUser Role = "user"
	// RoleModerator is an exported constant or variable used by the authentication core.
	RoleModerator Role = "moderator"
	// RoleContentAdmin is an exported constant or variable used by the authentication core.
	RoleContentAdmin Role = "content_admin"
	// RoleAdmin is an exported constant or variable used by the authentication core.
	RoleAdmin Role = "admin"
	// RoleSystemAdmin is an exported constant or variable used by the authentication core.
	RoleSystemAdmin Role = "system_admin"
)

// Capability names recognized by the default role table.
const (
	// CapManageUsers is an exported constant or variable used by the authentication core.
	CapManageUsers = "manage_users"
	// CapManageSettings is an exported constant or variable used by the authentication core.
	CapManageSettings = "manage_settings"
	// CapManageContent is an exported constant or variable used by the authentication core.
	CapManageContent = "manage_content"
	// CapModerateContent is an exported constant or variable used by the authentication core.
	CapModerateContent = "moderate_content"
	// CapViewMetrics is an exported constant or variable used by the authentication core.
	CapViewMetrics = "view_metrics"
)

// DefaultPermissions returns the capability vocabulary registered when
// the Builder is given no explicit permission list.
func DefaultPermissions() []string {
	return []string{
		CapManageUsers,
		CapManageSettings,
		CapManageContent,
		CapModerateContent,
		CapViewMetrics,
	}
}

// DefaultRoles returns the fixed role→capability mapping registered
// when the Builder is given no explicit role map.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		string(RoleUser):      {},
		string(RoleModerator): {CapModerateContent},
		string(RoleContentAdmin): {
			CapManageContent,
			CapModerateContent,
			CapViewMetrics,
		},
		string(RoleAdmin): {
			CapManageUsers,
			CapManageSettings,
			CapManageContent,
			CapModerateContent,
			CapViewMetrics,
		},
		string(RoleSystemAdmin): {
			CapManageUsers,
			CapManageSettings,
			CapManageContent,
			CapModerateContent,
			CapViewMetrics,
		},
	}
}

// UserProfile is the durable profile record owned by the profile
// resolver. It is only mutated through explicit update operations and
// re-fetched on a user-updated lifecycle event.
type UserProfile struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone describes the clone operation and its observable behavior.
//
// Clone may return an error when input validation, dependency calls, or security checks fail.
// Clone does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// ProfileUpdate carries the mutable profile fields; nil fields are left
// unchanged.
type ProfileUpdate struct {
	Username    *string
	DisplayName *string
	AvatarURL   *string
}

// RoleResolution is the normalized output of the role/permission
// resolver: a role from the closed set plus its immutable capability
// snapshot.
type RoleResolution struct {
	Role        Role
	Permissions permission.Set
	Fallback    bool
}

// LoginResult is returned by [LoginFlow.Login] and [LoginFlow.VerifyMFA].
// MFARequired is a distinguished control-flow outcome, not a failure:
// the UI swaps to a code-entry form instead of showing an error.
type LoginResult struct {
	MFARequired bool
	MFAType     string
	ChallengeID string

	Session *session.Session
	User    *UserProfile
}

// AuditEvent is a structured audit record emitted by the manager.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the manager's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication core.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the authentication core.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginLocked is an exported constant or variable used by the authentication core.
	MetricLoginLocked = internalmetrics.MetricLoginLocked
	// MetricMFARequired is an exported constant or variable used by the authentication core.
	MetricMFARequired = internalmetrics.MetricMFARequired
	// MetricMFASuccess is an exported constant or variable used by the authentication core.
	MetricMFASuccess = internalmetrics.MetricMFASuccess
	// MetricMFAFailure is an exported constant or variable used by the authentication core.
	MetricMFAFailure = internalmetrics.MetricMFAFailure
	// MetricMFAAbandoned is an exported constant or variable used by the authentication core.
	MetricMFAAbandoned = internalmetrics.MetricMFAAbandoned
	// MetricResolveSuccess is an exported constant or variable used by the authentication core.
	MetricResolveSuccess = internalmetrics.MetricResolveSuccess
	// MetricResolveFailure is an exported constant or variable used by the authentication core.
	MetricResolveFailure = internalmetrics.MetricResolveFailure
	// MetricResolveShared is an exported constant or variable used by the authentication core.
	MetricResolveShared = internalmetrics.MetricResolveShared
	// MetricResolveCoalesced is an exported constant or variable used by the authentication core.
	MetricResolveCoalesced = internalmetrics.MetricResolveCoalesced
	// MetricResolveDiscardedStale is an exported constant or variable used by the authentication core.
	MetricResolveDiscardedStale = internalmetrics.MetricResolveDiscardedStale
	// MetricRoleFallback is an exported constant or variable used by the authentication core.
	MetricRoleFallback = internalmetrics.MetricRoleFallback
	// MetricSessionRefreshed is an exported constant or variable used by the authentication core.
	MetricSessionRefreshed = internalmetrics.MetricSessionRefreshed
	// MetricSignedOut is an exported constant or variable used by the authentication core.
	MetricSignedOut = internalmetrics.MetricSignedOut
	// MetricForcedSignOut is an exported constant or variable used by the authentication core.
	MetricForcedSignOut = internalmetrics.MetricForcedSignOut
	// MetricResolveLatency is an exported constant or variable used by the authentication core.
	MetricResolveLatency = internalmetrics.MetricResolveLatency
)

// Metrics holds atomic counters and an optional resolve-latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
