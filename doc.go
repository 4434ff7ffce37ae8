// Package authcore implements the authentication and authorization
// lifecycle shared by the user-facing and administrative surfaces of a
// directory application: login throttling, optional MFA challenges,
// single-flight profile resolution, role/permission resolution, a
// reactive auth state store, session lifecycle monitoring, and a pure
// route-guard decision function.
//
// The package never talks to an identity provider directly. It consumes
// the [IdentityProvider] and [Directory] contracts and keeps all local
// state consistent with the asynchronous events those collaborators emit.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Manager], [View],
// [LoginFlow], [Builder], [Config], and value types (AuthState,
// Decision, MetricsSnapshot, etc.). Internal coordination (challenge
// storage, audit dispatch, metric counters) lives under internal/ and
// is never exported.
//
// # What this package must NOT do
//
//   - Persist or log credentials; email/password pairs are transient.
//   - Expose Redis clients, internal stores, or record encodings in its
//     public API.
//   - Mutate [AuthState] outside the store's named transitions.
//
// # Consistency contract
//
// Authenticated is true only while a profile has been resolved for a
// session whose expiry is strictly in the future. Subscribers are
// notified synchronously, in registration order, and only ever observe
// fully-formed snapshots.
package authcore
