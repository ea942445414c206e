//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package pattern implements hierarchical path-pattern matching for
// permission rules.
//
// Patterns are segment-delimited: a literal segment matches only itself,
// "*" matches exactly one arbitrary segment, and a trailing "**" matches
// zero or more remaining segments.  A pattern without a trailing "**"
// requires an exact segment-count match.
//
// Matching also yields a specificity score used to rank competing rules:
// each literal segment contributes 2, each "*" contributes 1, and a
// trailing "**" contributes 0.
//
// Match is a pure function with no I/O or shared state and is safe to
// call from any number of goroutines.
package pattern

import "strings"

const (
	literalScore  = 2
	wildcardScore = 1
)

// Match reports whether path satisfies pattern, and how specific the
// match is.  When the pattern does not match, the specificity is 0.
func Match(pattern, path string) (bool, int) {
	psegs := split(pattern)
	rsegs := split(path)

	specificity := 0
	for i, seg := range psegs {
		if seg == "**" && i == len(psegs)-1 {
			// trailing ** absorbs zero or more remaining segments
			return true, specificity
		}
		if i >= len(rsegs) {
			return false, 0
		}
		switch seg {
		case "*":
			specificity += wildcardScore
		default:
			if seg != rsegs[i] {
				return false, 0
			}
			specificity += literalScore
		}
	}

	if len(rsegs) != len(psegs) {
		return false, 0
	}
	return true, specificity
}

// split breaks a '/'-delimited path into its segments, treating the root
// path as having no segments.
func split(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
