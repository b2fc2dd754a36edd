package resolver

import (
	"github.com/doylet/guardrails-ai-sub001/internal/domain/xerrors"
)

// Validate checks the invariants load_manifests must enforce beyond
// per-document schema validation (already done by manifest.ParseCoreManifest
// / manifest.ParsePluginManifest): no duplicate component names across
// core and plugins, and every declared dependency names a component that
// actually exists. Cycle detection is ResolveOrder's job, since a cycle
// is a property of the whole graph rather than of one edge.
func Validate(spec *ResolvedSpec) error {
	components := spec.AllComponents()

	seen := make(map[string]bool, len(components))
	for _, c := range components {
		qn := c.QualifiedName()
		if seen[qn] {
			return xerrors.NewManifestSchemaError("duplicate component name: " + qn)
		}
		seen[qn] = true
	}

	for _, c := range components {
		for _, dep := range c.Dependencies {
			if !seen[dep] {
				return xerrors.NewMissingDepError(c.QualifiedName(), dep)
			}
		}
	}

	for id, pm := range spec.Plugins {
		for _, dep := range pm.DependsOn {
			if _, ok := spec.Plugins[dep]; !ok {
				return xerrors.NewMissingDepError(id, dep)
			}
		}
	}

	return nil
}
