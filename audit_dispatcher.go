package authcore

import (
	"github.com/google/uuid"

	internalaudit "github.com/sentralhq/authcore/internal/audit"
)

// Audit event kinds emitted by the authentication core.
const (
	auditEventLoginSuccess   = "login.success"
	auditEventLoginFailure   = "login.failure"
	auditEventLoginLocked    = "login.locked"
	auditEventMFARequired    = "mfa.required"
	auditEventMFASuccess     = "mfa.success"
	auditEventMFAFailure     = "mfa.failure"
	auditEventMFAAbandoned   = "mfa.abandoned"
	auditEventSignedOut      = "session.signed_out"
	auditEventForcedSignOut  = "session.forced_sign_out"
	auditEventTokenRefreshed = "session.token_refreshed"
	auditEventProfileUpdated = "profile.updated"
	auditEventRoleFallback   = "role.fallback"
)

// auditDispatcher is the root-side handle over the internal dispatcher.
// A nil receiver is valid and drops everything, so flows can emit
// unconditionally.
type auditDispatcher struct {
	dispatcher *internalaudit.Dispatcher
	surface    string
	clock      Clock
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, surface string, clock Clock) *auditDispatcher {
	if !cfg.Enabled || sink == nil {
		return nil
	}
	return &auditDispatcher{
		dispatcher: internalaudit.NewDispatcher(sink, cfg.BufferSize, cfg.DropIfFull),
		surface:    surface,
		clock:      clock,
	}
}

func (a *auditDispatcher) emit(kind, subjectID string, detail map[string]string) {
	if a == nil {
		return
	}
	a.dispatcher.Publish(internalaudit.Event{
		EventID:   uuid.NewString(),
		Timestamp: a.clock.Now(),
		Kind:      kind,
		SubjectID: subjectID,
		Surface:   a.surface,
		Detail:    detail,
	})
}

func (a *auditDispatcher) dropped() uint64 {
	if a == nil {
		return 0
	}
	return a.dispatcher.Dropped()
}

func (a *auditDispatcher) close() {
	if a == nil {
		return
	}
	a.dispatcher.Close()
}
