// Package metrics implements the lock-free in-process counters and the
// resolve-latency histogram used by the authentication core. The root
// package re-exports the public aliases.
package metrics
