package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// OnError names the recovery behavior for a failed installation phase step.
type OnError string

const (
	OnErrorFail OnError = "fail"
	OnErrorSkip OnError = "skip"
	OnErrorWarn OnError = "warn"
)

// PhaseStep is one named step within an installation phase.
type PhaseStep struct {
	Name         string  `yaml:"name" validate:"required"`
	Command      string  `yaml:"command" validate:"required"`
	Condition    string  `yaml:"condition,omitempty"`
	OnError      OnError `yaml:"on_error,omitempty"`
	ErrorMessage string  `yaml:"error_message,omitempty"`
}

// Phases groups a plugin's declared lifecycle steps by phase name. The
// core never executes these; it carries them into the resolved spec for
// the shell to run (spec.md §9).
type Phases struct {
	PreInstall  []PhaseStep `yaml:"pre_install,omitempty"`
	Install     []PhaseStep `yaml:"install,omitempty"`
	PostInstall []PhaseStep `yaml:"post_install,omitempty"`
	Verify      []PhaseStep `yaml:"verify,omitempty"`
}

// PromptType enumerates the typed user prompts a plugin can declare.
type PromptType string

const (
	PromptBoolean PromptType = "boolean"
	PromptString  PromptType = "string"
	PromptEnum    PromptType = "enum"
	PromptInt     PromptType = "int"
)

// Prompt is a single configuration question surfaced to the shell. The
// core records it verbatim; it never prompts a terminal itself.
type Prompt struct {
	Name    string     `yaml:"name" validate:"required"`
	Type    PromptType `yaml:"type" validate:"required,oneof=boolean string enum int"`
	Message string     `yaml:"message,omitempty"`
	Options []string   `yaml:"options,omitempty"` // for PromptEnum
	Default any        `yaml:"default,omitempty"`
}

// Configuration is a plugin's declared prompts, environment variables, and
// defaults — the variable namespace the TEMPLATE file action is allowed to
// reference (spec.md §4.2, §6 yaml_ops.template).
type Configuration struct {
	Prompts      []Prompt          `yaml:"prompts,omitempty"`
	Environment  []string          `yaml:"environment,omitempty"`
	Defaults     map[string]string `yaml:"defaults,omitempty"`
}

// VariableNames returns the whitelist of variable names the template
// adapter may substitute for this plugin: every prompt name, every
// declared environment variable, and every default key.
func (c Configuration) VariableNames() map[string]bool {
	names := make(map[string]bool, len(c.Prompts)+len(c.Environment)+len(c.Defaults))
	for _, p := range c.Prompts {
		names[p.Name] = true
	}
	for _, e := range c.Environment {
		names[e] = true
	}
	for k := range c.Defaults {
		names[k] = true
	}
	return names
}

// MergeStrategy names how a composed structure-schema entry resolves a
// multi-plugin overlap (spec.md §4.1).
type MergeStrategy string

const (
	StrategyUnion       MergeStrategy = "UNION"
	StrategyOverride     MergeStrategy = "OVERRIDE"
	StrategyStrict       MergeStrategy = "STRICT"
	StrategyInteractive  MergeStrategy = "INTERACTIVE"
)

// StructureEntry is one path a plugin contributes to, requires to
// pre-exist, or conflicts with.
type StructureEntry struct {
	Path        string        `yaml:"path" validate:"required"`
	IsDir       bool          `yaml:"is_dir,omitempty"`
	Strategy    MergeStrategy `yaml:"strategy,omitempty"`
	Description string        `yaml:"description,omitempty"`
}

// StructureSchema is the plugin structure schema: paths provided,
// required to pre-exist, and conflicted with (spec.md §3).
type StructureSchema struct {
	Provides []StructureEntry `yaml:"provides,omitempty"`
	Requires []string         `yaml:"requires_structure,omitempty"`
	Conflicts []string        `yaml:"conflicts,omitempty"`
}

// PluginManifest is a plugin's manifest: the same component/profile shape
// as the core manifest, plus an optional structure schema, installation
// phases, and configuration.
type PluginManifest struct {
	ID            string           `yaml:"-"`
	Components    []Component      `yaml:"components" validate:"required,min=1,dive"`
	DependsOn     []string         `yaml:"depends_on,omitempty"`
	Structure     *StructureSchema `yaml:"structure,omitempty"`
	Phases        *Phases          `yaml:"phases,omitempty"`
	Configuration *Configuration   `yaml:"configuration,omitempty"`
}

type pluginManifestYAML struct {
	Components    []Component      `yaml:"components"`
	DependsOn     []string         `yaml:"depends_on"`
	Structure     *StructureSchema `yaml:"structure"`
	Phases        *Phases          `yaml:"phases"`
	Configuration *Configuration   `yaml:"configuration"`
}

var knownPluginKeys = map[string]bool{
	"components":    true,
	"depends_on":    true,
	"structure":     true,
	"phases":        true,
	"configuration": true,
}

// ParsePluginManifest parses and validates a plugin manifest document,
// namespacing its components by id.
func ParsePluginManifest(id string, data []byte) (*PluginManifest, error) {
	if err := rejectUnknownTopLevelKeys(data, knownPluginKeys); err != nil {
		return nil, fmt.Errorf("plugin %q: %w", id, err)
	}

	var raw pluginManifestYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse plugin %q manifest: %w", id, err)
	}

	pm := &PluginManifest{
		ID:            id,
		Components:    raw.Components,
		DependsOn:     raw.DependsOn,
		Structure:     raw.Structure,
		Phases:        raw.Phases,
		Configuration: raw.Configuration,
	}
	for i := range pm.Components {
		pm.Components[i].PluginID = id
	}

	if err := validatorInstance().Struct(pm); err != nil {
		return nil, fmt.Errorf("validate plugin %q manifest: %w", id, err)
	}

	return pm, nil
}
