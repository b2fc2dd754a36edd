// Package resolver implements the Resolver: load_manifests,
// compose_target_schema, resolve_order (spec.md §4.1). It is a pure
// package — manifest content and plugin roots are read for it by the
// orchestrator through ports.FileSystem; the resolver itself never
// decides where bytes come from.
package resolver

import (
	"sort"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/schema"
)

// ComponentRef names one component in resolved installation order.
type ComponentRef struct {
	Name         string
	PluginID     string
	InstallOrder int
}

// QualifiedName mirrors manifest.Component.QualifiedName.
func (c ComponentRef) QualifiedName() string {
	if c.PluginID == "" {
		return c.Name
	}
	return c.PluginID + "/" + c.Name
}

// ResolvedSpec is load_manifests' successful result: every manifest
// parsed and validated, plugins keyed by id, nothing ordered yet.
type ResolvedSpec struct {
	Core     *manifest.Manifest
	Plugins  map[string]*manifest.PluginManifest
	Profiles map[string]manifest.Profile
}

// AllComponents returns every component across the core manifest and
// every plugin, in manifest-declaration order (core first, then plugins
// sorted by id for determinism).
func (r *ResolvedSpec) AllComponents() []manifest.Component {
	var out []manifest.Component
	out = append(out, r.Core.Components...)

	ids := make([]string, 0, len(r.Plugins))
	for id := range r.Plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		out = append(out, r.Plugins[id].Components...)
	}
	return out
}

// ComponentsForProfile resolves a profile name to its member components,
// across core and every plugin.
func (r *ResolvedSpec) ComponentsForProfile(profileName string) ([]manifest.Component, bool) {
	profile, ok := r.Profiles[profileName]
	if !ok {
		return nil, false
	}

	byName := make(map[string]manifest.Component, len(r.Core.Components))
	for _, c := range r.AllComponents() {
		byName[c.QualifiedName()] = c
		if c.PluginID == "" {
			byName[c.Name] = c
		}
	}

	out := make([]manifest.Component, 0, len(profile.Components))
	for _, name := range profile.Components {
		if c, ok := byName[name]; ok {
			out = append(out, c)
		}
	}
	return out, true
}

// CompositionResult is compose_target_schema's successful result: the
// merged target schema plus the enabled plugin ids it was built from, in
// the order they were composed: as the caller passed them to
// ComposeTargetSchema (Resolve sorts them by lowest component
// install_order, then plugin id; plugin depends_on is not consulted).
type CompositionResult struct {
	Schema        *schema.TargetSchema
	PluginOrder   []string
}
