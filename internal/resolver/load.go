package resolver

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/xerrors"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// LoadManifests implements load_manifests (spec.md §4.1): parse the core
// manifest, parse every plugin manifest named in it, and expand each
// component's file patterns against the filesystem so later stages never
// need to touch glob syntax again.
func LoadManifests(fs ports.FileSystem, corePath string, pluginRoots map[string]string) (*ResolvedSpec, error) {
	coreData, err := fs.ReadFile(corePath)
	if err != nil {
		return nil, xerrors.NewIOError(fmt.Sprintf("read core manifest %s", corePath), err)
	}

	core, err := manifest.ParseCoreManifest(coreData)
	if err != nil {
		return nil, xerrors.NewManifestSchemaError(err.Error())
	}

	baseDir := filepath.Dir(corePath)
	if err := expandComponentFiles(fs, baseDir, core.Components); err != nil {
		return nil, err
	}

	plugins := make(map[string]*manifest.PluginManifest, len(core.Plugins))
	for id, declaredRoot := range core.Plugins {
		pluginRoot := declaredRoot
		if !filepath.IsAbs(pluginRoot) {
			pluginRoot = filepath.Join(baseDir, pluginRoot)
		}

		pluginPath, ok := pluginRoots[id]
		if !ok {
			pluginPath = filepath.Join(pluginRoot, "plugin.yaml")
		}

		data, err := fs.ReadFile(pluginPath)
		if err != nil {
			return nil, xerrors.NewIOError(fmt.Sprintf("read plugin %q manifest %s", id, pluginPath), err)
		}

		pm, err := manifest.ParsePluginManifest(id, data)
		if err != nil {
			return nil, xerrors.NewManifestSchemaError(err.Error())
		}

		if err := expandComponentFiles(fs, pluginRoot, pm.Components); err != nil {
			return nil, err
		}

		plugins[id] = pm
	}

	profiles := make(map[string]manifest.Profile, len(core.Profiles))
	for _, p := range core.Profiles {
		profiles[p.Name] = p
	}

	return &ResolvedSpec{Core: core, Plugins: plugins, Profiles: profiles}, nil
}

// expandComponentFiles rewrites each component's Files from source-path
// patterns into the concrete matched paths, rooted at baseDir, in
// lexicographic order. A pattern matching no files is a ValidationError
// (spec.md §4.1: "ValidationError (pattern resolves to zero files)").
func expandComponentFiles(fs ports.FileSystem, baseDir string, components []manifest.Component) error {
	for i := range components {
		c := &components[i]
		var expanded []string

		for _, pattern := range c.Files {
			matches, err := globFiles(fs, baseDir, pattern)
			if err != nil {
				return xerrors.NewIOError(fmt.Sprintf("glob pattern %q for component %q", pattern, c.Name), err)
			}
			if len(matches) == 0 {
				return xerrors.NewValidationError(c.Name, fmt.Sprintf("pattern %q resolves to zero files", pattern))
			}
			expanded = append(expanded, matches...)
		}

		sort.Strings(expanded)
		c.Files = expanded
	}
	return nil
}

// globFiles resolves pattern against baseDir using filepath.Glob semantics,
// returning paths relative to baseDir.
func globFiles(fs ports.FileSystem, baseDir, pattern string) ([]string, error) {
	full := filepath.Join(baseDir, pattern)
	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, err
	}

	rel := make([]string, 0, len(matches))
	for _, m := range matches {
		if fs.IsDir(m) {
			continue
		}
		r, err := filepath.Rel(baseDir, m)
		if err != nil {
			return nil, err
		}
		rel = append(rel, r)
	}
	return rel, nil
}
