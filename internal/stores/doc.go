// Package stores provides short-lived challenge record storage for the
// MFA step-up flow.
//
// # Design
//
// Two implementations share one contract: an in-memory store for
// single-process embedders and a Redis-backed store for deployments
// where the login flow may land on any replica. The Redis store
// persists a versioned binary record with a TTL; RecordFailure uses a
// WATCH/MULTI optimistic transaction with retry on contention. Records
// are single-use: deleted on successful verification, and they enforce
// an attempt limit.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - See or store verification codes; only attempt counts live here.
package stores
