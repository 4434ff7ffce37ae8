package authcore

import "time"

// Clock is the time source injected into every time-dependent component
// (throttle, resolver coalescing, guard deadlines, state store). Tests
// substitute a manual clock; production code uses [SystemClock].
type Clock interface {
	Now() time.Time
}

// SystemClock is a [Clock] backed by [time.Now].
type SystemClock struct{}

// Now describes the now operation and its observable behavior.
//
// Now may return an error when input validation, dependency calls, or security checks fail.
// Now does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (SystemClock) Now() time.Time {
	return time.Now()
}
