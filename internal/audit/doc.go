// Package audit defines the audit event model, the sink contract, and
// the asynchronous dispatcher that forwards lifecycle events to an
// embedder-provided sink without blocking auth flows.
package audit
