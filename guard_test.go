package authcore

import (
	"errors"
	"testing"
	"time"

	"github.com/sentralhq/authcore/session"
)

func testGuard() *Guard {
	return NewGuard(GuardConfig{
		LoadingTimeout:     10 * time.Second,
		LoginTarget:        "/login",
		UnauthorizedTarget: "/unauthorized",
	})
}

func liveSession(now time.Time) *session.Session {
	return &session.Session{
		AccessToken: "tok-1",
		Subject:     "u1",
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestGuardShowsLoadingWhileResolving(t *testing.T) {
	guard := testGuard()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	state := AuthState{Loading: true, LoadStartedAt: now.Add(-time.Second)}
	decision := guard.Decide(state, Requirement{Role: RoleAdmin, Path: "/admin"}, now)
	if decision.Action != ActionShowLoading || decision.Reason != "loading" {
		t.Fatalf("unexpected decision: %+v", decision)
	}

	// Uninitialized state is treated the same as loading.
	decision = guard.Decide(AuthState{}, Requirement{Role: RoleUser}, now)
	if decision.Action != ActionShowLoading {
		t.Fatalf("unexpected decision for uninitialized state: %+v", decision)
	}
}

func TestGuardLoadingTimeoutFallsBackToLogin(t *testing.T) {
	guard := testGuard()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	state := AuthState{Loading: true, LoadStartedAt: now.Add(-11 * time.Second)}
	decision := guard.Decide(state, Requirement{Role: RoleUser, Path: "/settings"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/login" ||
		decision.Reason != "timeout" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if decision.ReturnTo != "/settings" {
		t.Fatalf("ReturnTo = %q, want /settings", decision.ReturnTo)
	}
}

func TestGuardErrorStateRedirectsToLogin(t *testing.T) {
	guard := testGuard()
	now := time.Now()

	state := AuthState{Initialized: true, Err: errors.New("profile fetch failed")}
	decision := guard.Decide(state, Requirement{Path: "/home"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/login" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if decision.Reason != "profile fetch failed" {
		t.Fatalf("Reason = %q, want the error message", decision.Reason)
	}
	if decision.ReturnTo != "/home" {
		t.Fatalf("ReturnTo = %q, want /home", decision.ReturnTo)
	}
}

func TestGuardRedirectsUnauthenticatedToLogin(t *testing.T) {
	guard := testGuard()
	now := time.Now()

	state := AuthState{Initialized: true}
	decision := guard.Decide(state, Requirement{Role: RoleUser, Path: "/dash"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/login" ||
		decision.Reason != "not_authenticated" || decision.ReturnTo != "/dash" {
		t.Fatalf("unexpected decision: %+v", decision)
	}

	// The redirect is unconditional: a route demanding nothing still
	// requires somebody to be signed in.
	decision = guard.Decide(state, Requirement{Path: "/"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/login" ||
		decision.Reason != "not_authenticated" {
		t.Fatalf("unexpected decision for open route: %+v", decision)
	}
}

func TestGuardExpiredSessionRedirectsToLogin(t *testing.T) {
	guard := testGuard()
	now := time.Now()

	state := AuthState{
		Initialized:   true,
		Authenticated: true,
		User:          &UserProfile{ID: "u1", Role: RoleAdmin},
		Session: &session.Session{
			AccessToken: "tok-1",
			Subject:     "u1",
			ExpiresAt:   now.Add(-time.Hour),
		},
	}

	decision := guard.Decide(state, Requirement{Role: RoleAdmin, Path: "/admin"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/login" ||
		decision.Reason != "not_authenticated" {
		t.Fatalf("expired session must not pass a role check: %+v", decision)
	}

	decision = guard.Decide(state, Requirement{Path: "/"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/login" {
		t.Fatalf("expired session must not pass an open route: %+v", decision)
	}
}

func TestGuardRoleMismatchGoesToUnauthorized(t *testing.T) {
	guard := testGuard()
	now := time.Now()

	state := AuthState{
		Initialized:   true,
		Authenticated: true,
		User:          &UserProfile{ID: "u1", Role: RoleUser},
		Session:       liveSession(now),
	}
	decision := guard.Decide(state, Requirement{Role: RoleAdmin, Path: "/admin"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/unauthorized" ||
		decision.Reason != "missing_role" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	// Role mismatch is not a login problem: no return-to hint.
	if decision.ReturnTo != "" {
		t.Fatalf("ReturnTo = %q, want empty", decision.ReturnTo)
	}
}

func TestGuardMissingPermissionGoesToUnauthorized(t *testing.T) {
	guard := testGuard()
	now := time.Now()

	state := AuthState{
		Initialized:   true,
		Authenticated: true,
		User:          &UserProfile{ID: "u1", Role: RoleModerator},
		Session:       liveSession(now),
		Permissions:   testPermissionSet(t, CapModerateContent),
	}
	decision := guard.Decide(state, Requirement{Permissions: []string{CapManageUsers}}, now)
	if decision.Action != ActionRedirect || decision.Target != "/unauthorized" ||
		decision.Reason != "missing_permission" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestGuardPermissionOnlyRouteUnauthenticated(t *testing.T) {
	guard := testGuard()
	now := time.Now()

	state := AuthState{Initialized: true}
	decision := guard.Decide(state, Requirement{Permissions: []string{CapViewMetrics}, Path: "/metrics"}, now)
	if decision.Action != ActionRedirect || decision.Target != "/login" ||
		decision.Reason != "not_authenticated" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestGuardAllowsSatisfiedRequirement(t *testing.T) {
	guard := testGuard()
	now := time.Now()

	state := AuthState{
		Initialized:   true,
		Authenticated: true,
		User:          &UserProfile{ID: "u1", Role: RoleAdmin},
		Session:       liveSession(now),
		Permissions:   testPermissionSet(t, CapManageUsers, CapManageSettings),
	}
	decision := guard.Decide(state, Requirement{
		Role:        RoleAdmin,
		Permissions: []string{CapManageUsers, CapManageSettings},
	}, now)
	if decision.Action != ActionAllow || decision.Reason != "ok" {
		t.Fatalf("unexpected decision: %+v", decision)
	}

	// Unrestricted routes pass for any signed-in user.
	decision = guard.Decide(state, Requirement{Path: "/"}, now)
	if decision.Action != ActionAllow {
		t.Fatalf("unexpected decision for open route: %+v", decision)
	}
}
