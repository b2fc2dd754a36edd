// Package schema holds the composed target structure schema: the merged
// expectation of which paths must (and must not) exist in a target
// repository, with per-entry provenance (spec.md §3, §4.1).
package schema

import "github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"

// Entry describes one composed path requirement.
type Entry struct {
	Path         string
	Required     bool
	IsDir        bool
	MergeStrategy manifest.MergeStrategy
	Description  string
	// OwnerPlugins lists every plugin (core uses "") that contributed this
	// entry, in admission order. For STRICT entries this is always length 1
	// after composition — a second contributor would have raised a
	// ConflictError before the entry was recorded.
	OwnerPlugins []string
}

// TargetSchema is the fully composed schema for one resolved spec.
type TargetSchema struct {
	entries map[string]Entry
}

// NewTargetSchema returns an empty composed schema.
func NewTargetSchema() *TargetSchema {
	return &TargetSchema{entries: make(map[string]Entry)}
}

// Put inserts or replaces a composed entry. Composition logic
// (internal/resolver) is responsible for enforcing merge-strategy
// semantics before calling Put; TargetSchema itself is a plain container.
func (s *TargetSchema) Put(e Entry) {
	s.entries[e.Path] = e
}

// Get returns the composed entry for a path, if any.
func (s *TargetSchema) Get(path string) (Entry, bool) {
	e, ok := s.entries[path]
	return e, ok
}

// Paths returns every composed path, in no particular order; callers that
// need determinism (e.g. Doctor reports) should sort the result themselves.
func (s *TargetSchema) Paths() []string {
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	return paths
}

// Required returns every entry whose Required flag is set.
func (s *TargetSchema) Required() []Entry {
	req := make([]Entry, 0)
	for _, e := range s.entries {
		if e.Required {
			req = append(req, e)
		}
	}
	return req
}

// Len returns the number of composed entries.
func (s *TargetSchema) Len() int {
	return len(s.entries)
}
