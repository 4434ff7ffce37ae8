package authcore

import (
	"time"
)

// Action enumerates the guard's possible decisions.
type Action string

const (
	// ActionShowLoading is an exported constant or variable used by the authentication core.
	ActionShowLoading Action = "show_loading"
	// ActionAllow is an exported constant or variable used by the authentication core.
	ActionAllow Action = "allow"
	// ActionRedirect is an exported constant or variable used by the authentication core.
	ActionRedirect Action = "redirect"
)

// Requirement describes what a route demands: an optional role, any
// number of required capabilities, and the path being accessed (echoed
// back as the return-to hint on login redirects).
type Requirement struct {
	Role        Role
	Permissions []string
	Path        string
}

// Decision is the guard's verdict for one access check.
type Decision struct {
	Action Action
	// Target is the redirect destination, set only for ActionRedirect.
	Target string
	// Reason is a stable machine-readable cause: "loading", "timeout",
	// "not_authenticated", "missing_permission", "missing_role", "ok".
	// Error-state redirects carry the error message instead.
	Reason string
	// ReturnTo echoes the requested path on login redirects so the
	// embedder can resume navigation after sign-in.
	ReturnTo string
}

// Guard evaluates access rules against a state snapshot. Decide is a
// pure function of its inputs: it never blocks, performs I/O, or
// mutates anything, so it is trivially safe to call from any goroutine.
type Guard struct {
	cfg GuardConfig
}

// NewGuard describes the newguard operation and its observable behavior.
//
// NewGuard may return an error when input validation, dependency calls, or security checks fail.
// NewGuard does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewGuard(cfg GuardConfig) *Guard {
	return &Guard{cfg: cfg}
}

// Decide describes the decide operation and its observable behavior.
//
// Decide may return an error when input validation, dependency calls, or security checks fail.
// Decide does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Guard) Decide(state AuthState, req Requirement, now time.Time) Decision {
	// Rules are evaluated strictly in order; the first match wins.

	// 1. Still resolving and within the loading window.
	if state.Loading || !state.Initialized {
		withinWindow := state.LoadStartedAt.IsZero() ||
			now.Sub(state.LoadStartedAt) <= g.cfg.LoadingTimeout
		if withinWindow {
			return Decision{Action: ActionShowLoading, Reason: "loading"}
		}
		// 2. Loading exceeded its window: fall back to login rather than
		// blanking the screen forever.
		return Decision{
			Action:   ActionRedirect,
			Target:   g.cfg.LoginTarget,
			Reason:   "timeout",
			ReturnTo: req.Path,
		}
	}

	// 3. A check that completed in an error sends the user back to login
	// carrying the cause.
	if state.Err != nil {
		return Decision{
			Action:   ActionRedirect,
			Target:   g.cfg.LoginTarget,
			Reason:   state.Err.Error(),
			ReturnTo: req.Path,
		}
	}

	// An expired session never counts as authenticated, whatever the
	// snapshot still claims.
	authenticated := state.Authenticated && state.Session.Valid(now)

	// 4. Insufficient role or capabilities for a signed-in user. Checked
	// before the generic auth rule so a signed-in user short on
	// capabilities lands on the unauthorized page, not the login page.
	if authenticated {
		if req.Role != "" && (state.User == nil || state.User.Role != req.Role) {
			return Decision{
				Action: ActionRedirect,
				Target: g.cfg.UnauthorizedTarget,
				Reason: "missing_role",
			}
		}
		if len(req.Permissions) > 0 && !state.Permissions.HasAll(req.Permissions...) {
			return Decision{
				Action: ActionRedirect,
				Target: g.cfg.UnauthorizedTarget,
				Reason: "missing_permission",
			}
		}
		// 6. Every demand is satisfied.
		return Decision{Action: ActionAllow, Reason: "ok"}
	}

	// 5. Nobody is signed in: every route redirects to login, echoing the
	// requested path so navigation can resume after sign-in.
	return Decision{
		Action:   ActionRedirect,
		Target:   g.cfg.LoginTarget,
		Reason:   "not_authenticated",
		ReturnTo: req.Path,
	}
}
