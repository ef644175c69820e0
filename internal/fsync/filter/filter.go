// Package filter decides which absolute paths a traversal touches, based on
// optional include and exclude lists of fully anchored regular expressions.
package filter

import (
	"fmt"
	"regexp"
)

// Matcher applies the include/exclude policy: when an include list is
// present a path must match at least one pattern, and a path matching any
// exclude pattern is rejected. A nil Matcher accepts everything.
type Matcher struct {
	includes []*regexp.Regexp
	excludes []*regexp.Regexp
}

// New compiles the pattern lists. Patterns are anchored at both ends, so
// `data/.*` matches only whole paths.
func New(includes, excludes []string) (*Matcher, error) {
	in, err := compile(includes)
	if err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	ex, err := compile(excludes)
	if err != nil {
		return nil, fmt.Errorf("exclude pattern: %w", err)
	}
	if in == nil && ex == nil {
		return nil, nil
	}
	return &Matcher{includes: in, excludes: ex}, nil
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^" + p + "$")
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports whether the path passes the filter.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return true
	}
	if m.includes != nil {
		found := false
		for _, re := range m.includes {
			if re.MatchString(path) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, re := range m.excludes {
		if re.MatchString(path) {
			return false
		}
	}
	return true
}
