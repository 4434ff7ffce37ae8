package authcore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sentralhq/authcore/session"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAccount struct {
	password string
	user     ProviderUser
	session  *session.Session
}

type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	current  *session.Session
	handlers map[int]LifecycleHandler
	nextSub  int

	signOutCalls int
	challengeSeq int
	acceptCode   string
	signInErr    error
	refreshErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts:   make(map[string]*fakeAccount),
		handlers:   make(map[int]LifecycleHandler),
		acceptCode: "123456",
	}
}

func (p *fakeProvider) addAccount(email, password string, user ProviderUser, sess *session.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email] = &fakeAccount{password: password, user: user, session: sess}
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*SignInResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.signInErr != nil {
		return nil, p.signInErr
	}
	acct, ok := p.accounts[email]
	if !ok || acct.password != password {
		return nil, ErrInvalidCredentials
	}
	p.current = acct.session.Clone()
	return &SignInResult{Session: acct.session.Clone(), User: acct.user}, nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, password string, metadata map[string]string) (*SignInResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user := ProviderUser{ID: "new-" + email, Email: email, Metadata: metadata}
	p.accounts[email] = &fakeAccount{password: password, user: user}
	return &SignInResult{User: user}, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutCalls++
	p.current = nil
	return nil
}

func (p *fakeProvider) GetSession(context.Context) (*session.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.Clone(), nil
}

func (p *fakeProvider) RefreshSession(context.Context) (*session.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	if p.current == nil {
		return nil, ErrSessionExpired
	}
	refreshed := p.current.Clone()
	refreshed.AccessToken += "+refreshed"
	p.current = refreshed.Clone()
	return refreshed, nil
}

func (p *fakeProvider) ChallengeMFA(_ context.Context, factorID string) (*MFAChallengeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if factorID == "" {
		return nil, ErrMFAUnavailable
	}
	p.challengeSeq++
	return &MFAChallengeResult{ChallengeID: fmt.Sprintf("ch-%d", p.challengeSeq)}, nil
}

func (p *fakeProvider) VerifyMFA(_ context.Context, _, _, code string) (*session.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if code != p.acceptCode {
		return nil, ErrInvalidCredentials
	}
	if p.current == nil {
		return nil, ErrSessionExpired
	}
	upgraded := p.current.Clone()
	upgraded.AccessToken += "+aal2"
	p.current = upgraded.Clone()
	return upgraded, nil
}

func (p *fakeProvider) OnAuthStateChange(handler LifecycleHandler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.handlers[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *fakeProvider) emit(event LifecycleEvent, sess *session.Session) {
	p.mu.Lock()
	handlers := make([]LifecycleHandler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(event, sess)
	}
}

func (p *fakeProvider) signOuts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOutCalls
}

type fakeDirectory struct {
	mu       sync.Mutex
	profiles map[string]*UserProfile
	roles    map[string]string

	profileErr error
	roleErr    error

	fetchCount atomic.Int32
	fetchGate  chan struct{}
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles: make(map[string]*UserProfile),
		roles:    make(map[string]string),
	}
}

func (d *fakeDirectory) addUser(subjectID, username, role string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[subjectID] = &UserProfile{
		ID:          subjectID,
		Username:    username,
		DisplayName: username,
	}
	if role != "" {
		d.roles[subjectID] = role
	}
}

func (d *fakeDirectory) FetchProfile(_ context.Context, subjectID string) (*UserProfile, error) {
	d.fetchCount.Add(1)
	if d.fetchGate != nil {
		<-d.fetchGate
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.profileErr != nil {
		return nil, d.profileErr
	}
	profile, ok := d.profiles[subjectID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return profile.Clone(), nil
}

func (d *fakeDirectory) FetchRoleAssignment(_ context.Context, subjectID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.roleErr != nil {
		return "", d.roleErr
	}
	role, ok := d.roles[subjectID]
	if !ok {
		return "", ErrRoleNotAssigned
	}
	return role, nil
}

func (d *fakeDirectory) UpdateProfile(_ context.Context, subjectID string, update ProfileUpdate) (*UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	profile, ok := d.profiles[subjectID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	if update.Username != nil {
		profile.Username = *update.Username
	}
	if update.DisplayName != nil {
		profile.DisplayName = *update.DisplayName
	}
	if update.AvatarURL != nil {
		profile.AvatarURL = *update.AvatarURL
	}
	return profile.Clone(), nil
}

func testSession(clock Clock, subject, token string) *session.Session {
	return &session.Session{
		AccessToken:  token,
		RefreshToken: "refresh-" + token,
		Subject:      subject,
		ExpiresAt:    clock.Now().Add(time.Hour),
	}
}

type testEnv struct {
	manager   *Manager
	provider  *fakeProvider
	directory *fakeDirectory
	clock     *manualClock
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	clock := newManualClock()
	provider := newFakeProvider()
	directory := newFakeDirectory()

	cfg := defaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	manager, err := New().
		WithConfig(cfg).
		WithProvider(provider).
		WithDirectory(directory).
		WithClock(clock).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })

	return &testEnv{
		manager:   manager,
		provider:  provider,
		directory: directory,
		clock:     clock,
	}
}

// waitForState polls until the predicate holds or the deadline passes.
// Lifecycle events apply on the monitor goroutine, so tests observe
// them asynchronously.
func waitForState(t *testing.T, m *Manager, pred func(AuthState) bool) AuthState {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := m.State()
		if pred(state) {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state predicate not satisfied before deadline, last state: %+v", m.State())
	return AuthState{}
}
