package permission

import "sort"

// Set is an immutable capability snapshot resolved for one role. The
// zero value is the empty set and grants nothing.
//
// Set instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Set struct {
	registry *Registry
	mask     uint64
}

// NewSet builds a Set containing the named capabilities. Unknown names
// are rejected so a role can never be registered against capabilities
// that do not exist.
func NewSet(registry *Registry, names []string) (Set, error) {
	s := Set{registry: registry}
	for _, name := range names {
		bit, ok := registry.Bit(name)
		if !ok {
			return Set{}, errUnknownCapability(name)
		}
		s.mask |= 1 << uint(bit)
	}
	return s, nil
}

type errUnknownCapability string

func (e errUnknownCapability) Error() string {
	return "capability not registered: " + string(e)
}

// Has describes the has operation and its observable behavior.
//
// Has may return an error when input validation, dependency calls, or security checks fail.
// Has does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s Set) Has(name string) bool {
	if s.registry == nil {
		return false
	}
	bit, ok := s.registry.Bit(name)
	if !ok {
		return false
	}
	return s.mask&(1<<uint(bit)) != 0
}

// HasAll describes the hasall operation and its observable behavior.
//
// HasAll may return an error when input validation, dependency calls, or security checks fail.
// HasAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s Set) HasAll(names ...string) bool {
	for _, name := range names {
		if !s.Has(name) {
			return false
		}
	}
	return true
}

// Empty describes the empty operation and its observable behavior.
//
// Empty may return an error when input validation, dependency calls, or security checks fail.
// Empty does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s Set) Empty() bool {
	return s.mask == 0
}

// Names describes the names operation and its observable behavior.
//
// Names may return an error when input validation, dependency calls, or security checks fail.
// Names does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s Set) Names() []string {
	if s.registry == nil || s.mask == 0 {
		return nil
	}

	var names []string
	for bit := 0; bit < s.registry.Count(); bit++ {
		if s.mask&(1<<uint(bit)) == 0 {
			continue
		}
		if name, ok := s.registry.Name(bit); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
