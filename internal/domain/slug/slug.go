// Package slug derives URL-safe identifiers that stay unique within a scope.
//
// A scope is either every ClientTemplate (or every CoachTemplate), or the sessions of
// one template. Callers fetch the existing slugs of the scope that contain the base
// and pass them to Next.
package slug

import (
	"strconv"
	"strings"

	gosimple "github.com/gosimple/slug"
)

// Fallback is used when a name slugifies to nothing (e.g. only punctuation).
const Fallback = "untitled"

// Make lower-cases name and replaces whitespace and punctuation with hyphens.
// PRE: none
// POST: returns a non-empty slug
func Make(name string) string {
	s := gosimple.Make(name)
	if s == "" {
		return Fallback
	}
	return s
}

// Next returns base if it is free in the scope, otherwise base-(N+1) where N is the
// largest numeric suffix already taken for base.
//
// Only slugs equal to base or of the form base-<digits> count as taken; other slugs
// that merely contain base ("x-base", "base-line") never collide with the result.
// PRE: base is a slug produced by Make
// POST: result is not an element of existing
func Next(base string, existing []string) string {
	taken := false
	maxN := 0
	prefix := base + "-"
	for _, s := range existing {
		if s == base {
			taken = true
			continue
		}
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		n, ok := suffixNumber(s[len(prefix):])
		if !ok {
			continue
		}
		taken = true
		if n > maxN {
			maxN = n
		}
	}
	if !taken {
		return base
	}
	return prefix + strconv.Itoa(maxN+1)
}

func suffixNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
