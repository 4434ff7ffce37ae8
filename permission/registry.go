package permission

import (
	"errors"
	"sync"
)

// MaxCapabilities caps the registry at one 64-bit mask word. The closed
// capability vocabulary of the application is far below this.
const MaxCapabilities = 64

// Registry defines a public type used by authcore APIs.
//
// Registry instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Registry struct {
	mu     sync.RWMutex
	bits   map[string]int
	names  []string
	frozen bool
}

// NewRegistry describes the newregistry operation and its observable behavior.
//
// NewRegistry may return an error when input validation, dependency calls, or security checks fail.
// NewRegistry does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRegistry() *Registry {
	return &Registry{
		bits: make(map[string]int),
	}
}

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return 0, errors.New("registry frozen")
	}
	if name == "" {
		return 0, errors.New("capability name empty")
	}
	if _, exists := r.bits[name]; exists {
		return 0, errors.New("capability already registered: " + name)
	}
	if len(r.names) >= MaxCapabilities {
		return 0, errors.New("capability registry full")
	}

	bit := len(r.names)
	r.bits[name] = bit
	r.names = append(r.names, name)
	return bit, nil
}

// Bit describes the bit operation and its observable behavior.
//
// Bit may return an error when input validation, dependency calls, or security checks fail.
// Bit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bit, ok := r.bits[name]
	return bit, ok
}

// Name describes the name operation and its observable behavior.
//
// Name may return an error when input validation, dependency calls, or security checks fail.
// Name does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if bit < 0 || bit >= len(r.names) {
		return "", false
	}
	return r.names[bit], true
}

// Count describes the count operation and its observable behavior.
//
// Count may return an error when input validation, dependency calls, or security checks fail.
// Count does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Freeze describes the freeze operation and its observable behavior.
//
// Freeze may return an error when input validation, dependency calls, or security checks fail.
// Freeze does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
