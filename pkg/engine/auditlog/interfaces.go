//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package auditlog provides interfaces and implementations for audit
// logging of authorization decisions.
//
// Audit records capture every decision the permission engine makes,
// creating a compliance trail for security monitoring and forensics.
// Delivery is best-effort and asynchronous: a failure to record is
// logged locally but never alters or delays the access decision already
// returned to the caller (see [Emitter]).
//
// # Built-in Implementations
//
// The package provides several stream implementations:
//   - [NewStdoutFactory]: Writes JSON records to stdout (default)
//   - [NewIoWriterFactory]: Writes JSON records to any io.Writer
//   - [NewNullFactory]: Discards all records (testing, benchmarks)
//
// # Custom Implementations
//
// To implement a custom audit sink (e.g., Kafka, database, cloud logging):
//
//  1. Implement the [Factory] interface to create stream instances
//  2. Implement the [Stream] interface to handle record delivery
//  3. Use options.WithAuditLog when creating the engine
package auditlog

import "time"

// Record captures a single authorization decision for the audit trail.
type Record struct {
	// ID is a unique identifier for this audit record.
	ID string `json:"id"`

	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`

	// PrincipalID is the subject that requested access.
	PrincipalID string `json:"principal_id"`

	// ResourcePath is the protected target.
	ResourcePath string `json:"resource_path"`

	// Action is the operation that was evaluated.
	Action string `json:"action"`

	// Effect is the outcome, "allow" or "deny".
	Effect string `json:"effect"`

	// Reason is the decision reason code, e.g. "admin-override",
	// "deny-by-default", "unavailable", or "matched-rule:<id>".
	Reason string `json:"reason"`

	// MatchedRuleID identifies the winning rule, when one matched.
	MatchedRuleID string `json:"matched_rule_id,omitempty"`

	// CacheHit indicates whether the decision was served from the
	// decision cache rather than freshly evaluated.
	CacheHit bool `json:"cache_hit"`

	// Duration is how long the authorization took.
	Duration time.Duration `json:"duration_ns"`

	// Metadata carries deployment context resolved from the audit.env
	// configuration (pod name, region, and the like).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Factory creates audit log [Stream] instances.
//
// The factory pattern enables deferred initialization of streaming
// resources.  The engine guarantees that configuration is fully loaded
// before NewStream is called.
type Factory interface {
	// NewStream creates a new audit stream, ready to receive records
	// via [Stream.Send].
	NewStream() (Stream, error)
}

// Stream is the interface for delivering audit records to a destination.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.  Send errors are logged by the engine but not retried;
// implementations should handle retries internally if needed.
type Stream interface {
	// Send delivers a record to the audit destination.  Send must not
	// modify the record.
	Send(record *Record) error

	// Close releases any resources held by the stream, flushing buffered
	// records first.  The stream must not be used after Close.
	Close()
}
