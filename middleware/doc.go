// Package middleware exposes an HTTP adapter over the route guard for
// server-rendered embedders.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into guard decisions. It does
// NOT implement authorization logic itself; all decisions come from the
// View's guard evaluation.
//
// # What this package must NOT do
//
//   - Inspect tokens or sessions directly.
//   - Call the identity provider or the directory.
package middleware
