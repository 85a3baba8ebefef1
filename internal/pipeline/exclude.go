// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import (
	"fmt"

	"github.com/gobwas/glob"
)

// ExcludeMatcher compiles the Ant-style exclude_patterns list once: the
// pipeline is bypassed entirely for any request path matching the globally
// configured exclude_patterns list. Built on github.com/gobwas/glob, whose
// '/' separator support maps directly onto Ant-style `**`/`*` path globbing.
type ExcludeMatcher struct {
	globs []glob.Glob
}

// NewExcludeMatcher compiles patterns. A nil or empty patterns list produces
// a matcher that excludes nothing.
func NewExcludeMatcher(patterns []string) (*ExcludeMatcher, error) {
	m := &ExcludeMatcher{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("pipeline: compile exclude pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether path matches any compiled pattern. A nil matcher
// never matches, so callers can pass a nil *ExcludeMatcher when no exclusion
// list is configured.
func (m *ExcludeMatcher) Match(path string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
