package permission

import (
	"errors"
	"sync"
)

// Table maps role names to resolved capability sets. The mapping is
// fixed at build time and frozen: a role can never observe a
// half-updated capability set mid-resolution.
//
// Table instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Table struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Set
	frozen bool
}

// NewTable describes the newtable operation and its observable behavior.
//
// NewTable may return an error when input validation, dependency calls, or security checks fail.
// NewTable does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewTable(registry *Registry) *Table {
	return &Table{
		registry: registry,
		roles:    make(map[string]Set),
	}
}

// RegisterRole describes the registerrole operation and its observable behavior.
//
// RegisterRole may return an error when input validation, dependency calls, or security checks fail.
// RegisterRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Table) RegisterRole(roleName string, capabilities []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.New("role table frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := t.roles[roleName]; exists {
		return errors.New("role already registered: " + roleName)
	}

	set, err := NewSet(t.registry, capabilities)
	if err != nil {
		return err
	}

	t.roles[roleName] = set
	return nil
}

// Resolve describes the resolve operation and its observable behavior.
//
// Resolve may return an error when input validation, dependency calls, or security checks fail.
// Resolve does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Table) Resolve(roleName string) (Set, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set, ok := t.roles[roleName]
	return set, ok
}

// Count describes the count operation and its observable behavior.
//
// Count may return an error when input validation, dependency calls, or security checks fail.
// Count does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.roles)
}

// Freeze describes the freeze operation and its observable behavior.
//
// Freeze may return an error when input validation, dependency calls, or security checks fail.
// Freeze does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}
