//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package model defines the data model of the permission engine: users,
// groups, memberships, permission rules, and the decisions the engine
// produces.
//
// Action and Effect are closed enumerations.  Unrecognized values are
// rejected at the rule-authoring boundary via [ParseAction],
// [ParseEffect], and [ValidateRule]; they never reach evaluation.
package model

import "time"

// Role is the coarse role assigned to a user by the identity subsystem.
type Role string

// User roles.
const (
	RoleAdmin  Role = "admin"
	RoleNormal Role = "normal"
)

// Action enumerates the operations a rule can govern.
type Action string

// Rule actions.
const (
	ActionReadPages     Action = "read_pages"
	ActionReadAssets    Action = "read_assets"
	ActionEditPages     Action = "edit_pages"
	ActionDeletePages   Action = "delete_pages"
	ActionManageFolders Action = "manage_folders"
	ActionAdmin         Action = "admin"
)

// Actions returns all known actions in declaration order.
func Actions() []Action {
	return []Action{
		ActionReadPages,
		ActionReadAssets,
		ActionEditPages,
		ActionDeletePages,
		ActionManageFolders,
		ActionAdmin,
	}
}

// Effect is the outcome a rule prescribes when it matches.
type Effect string

// Rule effects.
const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// User is a principal as seen by this engine.  Users are owned by the
// identity subsystem and are read-only here.
type User struct {
	ID     string `json:"id" yaml:"id"`
	Role   Role   `json:"role" yaml:"role"`
	Active bool   `json:"active" yaml:"active"`
}

// Group is a container for permission rules.  Users relate to groups
// many-to-many via [Membership].
type Group struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

// Membership associates a user with a group.
type Membership struct {
	UserID     string    `json:"user_id" yaml:"user"`
	GroupID    string    `json:"group_id" yaml:"group"`
	AssignedAt time.Time `json:"assigned_at" yaml:"assigned_at,omitempty"`
}

// Rule is a single permission rule.  It belongs to exactly one group and
// cascades when the group is deleted.
type Rule struct {
	ID              string    `json:"id" yaml:"id"`
	GroupID         string    `json:"group_id" yaml:"group"`
	ResourcePattern string    `json:"resource_pattern" yaml:"pattern"`
	Action          Action    `json:"action" yaml:"action"`
	Effect          Effect    `json:"effect" yaml:"effect"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

// Decision reason codes.  Together with "matched-rule:<id>" (see
// [MatchedRuleReason]) they form the complete set of reasons a decision
// can carry.
const (
	ReasonAdminOverride   = "admin-override"
	ReasonUnauthenticated = "unauthenticated"
	ReasonDefaultNormal   = "default-normal-permission"
	ReasonDenyByDefault   = "deny-by-default"
	ReasonUnavailable     = "unavailable"
)

// MatchedRuleReason returns the decision reason for a winning rule.
func MatchedRuleReason(ruleID string) string {
	return "matched-rule:" + ruleID
}

// Decision is the outcome of a single authorization evaluation.  Decisions
// are ephemeral: they live in the decision cache and in audit records,
// never in persistent storage.
type Decision struct {
	PrincipalID   string    `json:"principal_id"`
	ResourcePath  string    `json:"resource_path"`
	Action        Action    `json:"action"`
	Effect        Effect    `json:"effect"`
	MatchedRuleID string    `json:"matched_rule_id,omitempty"`
	Reason        string    `json:"reason"`
	ComputedAt    time.Time `json:"computed_at"`

	// Groups records the group memberships consulted when the decision
	// was computed.  The decision cache uses it to honor group-scoped
	// invalidation.
	Groups []string `json:"-"`
}

// Allowed is a convenience accessor for Effect == EffectAllow.
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}
