//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package common provides shared types and utilities used across the
// permission engine packages.
//
// # Error Handling
//
// The [PermError] type provides structured error information for
// authorization failures, including reason codes suitable for audit
// records and for the engine's fail-closed mapping of backend failures.
package common

import "fmt"

// ReasonCode is the machine-readable classification of a permission
// engine error.  The set is closed; codes map directly onto the
// engine's error taxonomy.
type ReasonCode string

const (
	// ReasonUnauthenticated indicates an unknown or inactive principal.
	// The evaluator resolves it to Deny.
	ReasonUnauthenticated ReasonCode = "unauthenticated"

	// ReasonUnavailable indicates an identity or rule store backend
	// failure.  The evaluator resolves it to Deny (fail-closed) with a
	// distinct audit reason so operators can tell infrastructure failure
	// apart from legitimate denial.
	ReasonUnavailable ReasonCode = "unavailable"

	// ReasonValidation indicates malformed input (pattern, action,
	// effect) at rule-authoring time.  Validation errors are rejected
	// before the rule is stored and are never observed during evaluation.
	ReasonValidation ReasonCode = "validation"

	// ReasonNotFound indicates a missing entity (user, group, rule).
	ReasonNotFound ReasonCode = "not_found"
)

// PermError represents an error encountered by the permission engine or
// one of its backends.
//
// PermError is returned by backend methods instead of the standard error
// interface so the evaluator can apply its fail-closed policy by reason
// code, and so audit records carry a structured cause.
type PermError struct {
	// Code is the machine-readable error classification.
	Code ReasonCode
	// Reason is a human-readable description of the error.
	Reason string
}

// Error implements the error interface, returning a formatted string
// containing both the reason message and the reason code.
func (e *PermError) Error() string {
	return fmt.Sprintf("%s(code-%s)", e.Reason, e.Code)
}

// NewError creates a new [PermError] with the specified reason code and message.
func NewError(code ReasonCode, msg string) *PermError {
	return &PermError{Code: code, Reason: msg}
}

// Errorf creates a new [PermError] with a formatted message.
func Errorf(code ReasonCode, format string, args ...interface{}) *PermError {
	return &PermError{Code: code, Reason: fmt.Sprintf(format, args...)}
}
