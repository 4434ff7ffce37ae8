package authcore

import (
	"context"
	"errors"
	"testing"
)

func adminSurface() SurfaceConfig {
	return SurfaceConfig{
		RequireMFAForRoles: []Role{RoleAdmin, RoleSystemAdmin},
		EligibleRoles:      []Role{RoleModerator, RoleContentAdmin, RoleAdmin, RoleSystemAdmin},
	}
}

func TestAdminSurfaceRefusesIneligibleRole(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.addUser("u1", "alice", string(RoleUser))
	env.provider.addAccount("alice@example.com", "hunter2",
		ProviderUser{ID: "u1"}, testSession(env.clock, "u1", "tok-1"))

	flow := env.manager.View(adminSurface()).NewLoginFlow()

	if _, err := flow.Login(context.Background(), "alice@example.com", "hunter2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for plain user on admin surface", err)
	}
	if env.manager.State().Authenticated {
		t.Fatal("refused login must not authenticate the shared state")
	}
	if env.provider.signOuts() == 0 {
		t.Fatal("expected provider session torn down after refusal")
	}
}

func TestUserSurfaceAcceptsAnyRole(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.addUser("u1", "alice", string(RoleUser))
	env.provider.addAccount("alice@example.com", "hunter2",
		ProviderUser{ID: "u1"}, testSession(env.clock, "u1", "tok-1"))

	flow := env.manager.View(SurfaceConfig{}).NewLoginFlow()
	result, err := flow.Login(context.Background(), "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.MFARequired {
		t.Fatal("user surface must not demand MFA for plain users")
	}
}

func TestAdminMFARequiredButNoFactorEnrolled(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.addUser("u1", "root", string(RoleAdmin))
	env.provider.addAccount("root@example.com", "hunter2",
		ProviderUser{ID: "u1"}, // no MFAFactorID
		testSession(env.clock, "u1", "tok-1"))

	flow := env.manager.View(adminSurface()).NewLoginFlow()
	if _, err := flow.Login(context.Background(), "root@example.com", "hunter2"); !errors.Is(err, ErrMFAUnavailable) {
		t.Fatalf("err = %v, want ErrMFAUnavailable without enrolled factor", err)
	}
	if env.manager.State().Authenticated {
		t.Fatal("MFA-required login must not authenticate without a factor")
	}
}

func TestViewDecideAppliesEligibility(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.addUser("u1", "alice", string(RoleUser))
	env.provider.addAccount("alice@example.com", "hunter2",
		ProviderUser{ID: "u1"}, testSession(env.clock, "u1", "tok-1"))

	// Sign in through the unrestricted surface.
	if _, err := env.manager.NewLoginFlow().Login(context.Background(), "alice@example.com", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	userView := env.manager.View(SurfaceConfig{})
	if decision := userView.Decide(Requirement{Path: "/home"}); decision.Action != ActionAllow {
		t.Fatalf("user surface decision = %+v, want allow", decision)
	}

	adminView := env.manager.View(adminSurface())
	decision := adminView.Decide(Requirement{Path: "/admin"})
	if decision.Action != ActionRedirect || decision.Reason != "missing_role" {
		t.Fatalf("admin surface decision = %+v, want missing_role redirect", decision)
	}
}

func TestViewStateProjectsIneligibleRole(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.addUser("u1", "alice", string(RoleUser))
	env.provider.addAccount("alice@example.com", "hunter2",
		ProviderUser{ID: "u1"}, testSession(env.clock, "u1", "tok-1"))

	if _, err := env.manager.NewLoginFlow().Login(context.Background(), "alice@example.com", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// A plain user signed in on the shared pipeline reads as
	// unauthenticated through the admin surface, while the base manager
	// and the unrestricted surface keep the session.
	adminState := env.manager.View(adminSurface()).State()
	if adminState.Authenticated || adminState.User != nil || adminState.Session != nil {
		t.Fatalf("admin view leaked an ineligible role: %+v", adminState)
	}
	if !adminState.Initialized {
		t.Fatal("projection must keep Initialized")
	}

	if !env.manager.State().Authenticated {
		t.Fatal("base manager must stay authenticated")
	}
	if !env.manager.View(SurfaceConfig{}).State().Authenticated {
		t.Fatal("unrestricted surface must see the session")
	}
}

func TestViewsShareOneStateStore(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.addUser("u1", "mod", string(RoleModerator))
	env.provider.addAccount("mod@example.com", "hunter2",
		ProviderUser{ID: "u1"}, testSession(env.clock, "u1", "tok-1"))

	userView := env.manager.View(SurfaceConfig{})
	adminView := env.manager.View(adminSurface())

	var notified int
	adminView.Subscribe(func(AuthState) { notified++ })

	if _, err := userView.NewLoginFlow().Login(context.Background(), "mod@example.com", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !adminView.State().Authenticated {
		t.Fatal("sign-in on one surface must be visible on the other")
	}
	if notified == 0 {
		t.Fatal("subscriber on another view must observe the transition")
	}
}
