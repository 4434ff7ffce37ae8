package authcore

import (
	"time"
)

// View is one surface's window onto a shared Manager: the same state
// store and pipeline, projected through that surface's eligibility and
// MFA policy. A user-facing app and an administrative console are two
// Views over one Manager.
type View struct {
	manager *Manager
	surface SurfaceConfig
}

// NewLoginFlow creates an independent login flow for one form on this
// surface. Each flow carries its own attempt throttle.
func (v *View) NewLoginFlow() *LoginFlow {
	return v.manager.newLoginFlow(v.surface)
}

// State returns this surface's projection of the shared snapshot. A
// signed-in role outside the surface's eligibility list reads as
// unauthenticated here while the base Manager keeps the session.
func (v *View) State() AuthState {
	return v.project(v.manager.State())
}

// Subscribe registers a callback on the shared store; every snapshot it
// delivers passes through the surface projection first.
func (v *View) Subscribe(fn Subscriber) (unsubscribe func()) {
	return v.manager.Subscribe(func(state AuthState) {
		fn(v.project(state))
	})
}

// Decide evaluates the guard for this surface against the current
// state. Surfaces with an eligibility list additionally refuse roles
// outside it, even when the route itself asks for nothing.
func (v *View) Decide(req Requirement) Decision {
	return v.DecideAt(req, v.manager.clock.Now())
}

// DecideAt is Decide with an explicit evaluation time, for callers that
// batch checks against one instant.
func (v *View) DecideAt(req Requirement, now time.Time) Decision {
	state := v.manager.State()
	if v.ineligible(state) {
		return Decision{
			Action: ActionRedirect,
			Target: v.manager.cfg.Guard.UnauthorizedTarget,
			Reason: "missing_role",
		}
	}
	return v.manager.guard.Decide(state, req, now)
}

// project strips authentication from a snapshot whose role this surface
// does not admit.
func (v *View) project(state AuthState) AuthState {
	if !v.ineligible(state) {
		return state
	}
	return AuthState{Initialized: state.Initialized}
}

func (v *View) ineligible(state AuthState) bool {
	if len(v.surface.EligibleRoles) == 0 || !state.Authenticated || state.User == nil {
		return false
	}
	return !roleIn(state.User.Role, v.surface.EligibleRoles)
}

func roleIn(role Role, roles []Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
