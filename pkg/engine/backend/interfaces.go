//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package backend defines the interfaces for identity and rule storage
// backends.
//
// A backend is responsible for resolving principals (users and their
// group memberships) and for serving the permission rules scoped to a
// set of groups and an action.  The permission engine uses backends to
// load the data needed for authorization decisions; it never writes
// through them.
//
// # Built-in Backends
//
// The following backend implementations are available:
//   - [local]: In-memory store loaded from YAML rule files, with
//     administrative write operations for groups, rules, and memberships
//   - Mock backend (internal): Driven by configuration, useful for testing
//
// # Implementing a Custom Backend
//
// To implement a custom backend (e.g., for a database or remote service):
//
//  1. Implement the [Factory] interface to create backend instances
//  2. Implement the [Service] interface to provide identity and rule data
//  3. Use the backend with options.WithBackend when creating the engine
//
// Backends that own administrative writes should also implement
// [InvalidationNotifier] so the engine can attach its decision cache
// invalidator; mutations must notify it synchronously before they are
// acknowledged.
package backend

import (
	"context"

	"github.com/pagesentry/permengine/pkg/common"
	"github.com/pagesentry/permengine/pkg/engine/model"
)

// Factory creates backend [Service] instances.
//
// The factory pattern separates early initialization (configuration
// defaults, file parsing) from late initialization (connecting to
// services).  The engine guarantees that configuration is fully loaded
// before NewBackend is called, so implementations should perform
// expensive operations there, not during factory construction.
type Factory interface {
	// NewBackend creates a new backend service instance.
	//
	// Returns an error if the backend cannot be initialized (e.g., a
	// rules file fails validation or a database connection fails).
	NewBackend() (Service, error)
}

// Service provides identity and rule data for authorization decisions.
//
// Methods return *[common.PermError] instead of error so the evaluator
// can apply its fail-closed policy by reason code: a
// [common.ReasonUnavailable] error always resolves to Deny with the
// "unavailable" reason, never to "no matching rules".
//
// All methods are safe for concurrent use by multiple goroutines.
type Service interface {
	// GetUser retrieves a user by principal ID.
	//
	// Unknown principals return a [common.ReasonNotFound] error, which
	// the evaluator maps to an unauthenticated denial.
	GetUser(ctx context.Context, id string) (*model.User, *common.PermError)

	// MembershipsOf returns the IDs of all groups the user belongs to.
	// A user with no memberships yields an empty slice and no error.
	MembershipsOf(ctx context.Context, userID string) ([]string, *common.PermError)

	// RulesForGroups returns the permission rules belonging to any of
	// the given groups, filtered to the given action.  Order is not
	// significant; the evaluator ranks matches itself.
	RulesForGroups(ctx context.Context, groupIDs []string, action model.Action) ([]model.Rule, *common.PermError)
}

// Invalidator receives synchronous invalidation callbacks when rule,
// group, or membership data changes.  The engine's decision cache
// implements it.
//
// Callers must invoke the matching method after a mutation commits and
// before the mutating operation is acknowledged to its own caller; this
// is the mechanism that prevents a stale permissive decision from
// surviving a permission tightening.
type Invalidator interface {
	// InvalidateUser drops all cached decisions for the user.
	InvalidateUser(userID string)

	// InvalidateGroup drops all cached decisions that consulted the group.
	InvalidateGroup(groupID string)

	// InvalidateAll drops every cached decision.
	InvalidateAll()
}

// InvalidationNotifier is implemented by backends that own administrative
// writes.  The engine attaches its [Invalidator] during construction.
type InvalidationNotifier interface {
	SetInvalidator(Invalidator)
}
