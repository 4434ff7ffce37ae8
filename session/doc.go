// Package session defines the local session model derived from tokens
// issued by the remote identity provider, plus the claim decoding used
// to recover subject and expiry when a provider omits them.
//
// Sessions are value objects. The package never verifies token
// signatures; that is the provider's job. Decoding here only recovers
// metadata the core needs for its own validity checks.
package session
