//
//  Copyright © PageSentry Labs. All rights reserved.
//

package model

import (
	"strings"

	"github.com/pagesentry/permengine/pkg/common"
)

// ParseAction converts a string into an [Action].  Unrecognized values
// yield a validation error; this is the write-boundary guard that keeps
// invalid actions out of the rule store.
func ParseAction(s string) (Action, *common.PermError) {
	a := Action(s)
	switch a {
	case ActionReadPages, ActionReadAssets, ActionEditPages,
		ActionDeletePages, ActionManageFolders, ActionAdmin:
		return a, nil
	}
	return "", common.Errorf(common.ReasonValidation, "unknown action: %q", s)
}

// ParseEffect converts a string into an [Effect].
func ParseEffect(s string) (Effect, *common.PermError) {
	e := Effect(s)
	switch e {
	case EffectAllow, EffectDeny:
		return e, nil
	}
	return "", common.Errorf(common.ReasonValidation, "unknown effect: %q", s)
}

// patternSegmentOK reports whether a literal pattern segment contains only
// permitted characters.
func patternSegmentOK(seg string) bool {
	for _, r := range seg {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// ValidatePattern checks a resource pattern at rule-authoring time.
//
// A valid pattern is a non-empty, '/'-prefixed, segment-delimited string.
// Each segment is either a literal, a single "*" (matching exactly one
// segment), or a trailing "**" (matching zero or more remaining segments).
// Partial-segment wildcards such as "foo*" are not supported.
func ValidatePattern(pattern string) *common.PermError {
	if pattern == "" {
		return common.NewError(common.ReasonValidation, "pattern must not be empty")
	}
	if !strings.HasPrefix(pattern, "/") {
		return common.Errorf(common.ReasonValidation, "pattern must start with '/': %q", pattern)
	}

	segs := strings.Split(strings.Trim(pattern, "/"), "/")
	for i, seg := range segs {
		switch seg {
		case "":
			return common.Errorf(common.ReasonValidation, "pattern contains an empty segment: %q", pattern)
		case "*":
			// single-segment wildcard, anywhere
		case "**":
			if i != len(segs)-1 {
				return common.Errorf(common.ReasonValidation, "'**' is only valid as the trailing segment: %q", pattern)
			}
		default:
			if strings.ContainsAny(seg, "*?") {
				return common.Errorf(common.ReasonValidation, "partial-segment wildcards are not supported: %q", pattern)
			}
			if !patternSegmentOK(seg) {
				return common.Errorf(common.ReasonValidation, "pattern segment contains invalid characters: %q", pattern)
			}
		}
	}

	return nil
}

// ValidateRule checks a complete rule at the write boundary.  It never
// runs during evaluation; rules in the store are valid by construction.
func ValidateRule(r *Rule) *common.PermError {
	if r.GroupID == "" {
		return common.NewError(common.ReasonValidation, "rule must belong to a group")
	}
	if err := ValidatePattern(r.ResourcePattern); err != nil {
		return err
	}
	if _, err := ParseAction(string(r.Action)); err != nil {
		return err
	}
	if _, err := ParseEffect(string(r.Effect)); err != nil {
		return err
	}
	return nil
}
