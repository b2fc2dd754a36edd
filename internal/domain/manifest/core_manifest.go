package manifest

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Manifest is the root core manifest: components, profiles, and the
// mapping from plugin identifier to plugin payload root (spec.md §3).
type Manifest struct {
	Components []Component       `yaml:"components" validate:"required,min=1,dive"`
	Profiles   []Profile         `yaml:"profiles,omitempty" validate:"dive"`
	Plugins    map[string]string `yaml:"plugins,omitempty"`
}

// coreManifestYAML mirrors Manifest but is unmarshaled first so unknown
// top-level keys can be rejected before struct validation runs.
type coreManifestYAML struct {
	Components []Component       `yaml:"components"`
	Profiles   []Profile         `yaml:"profiles"`
	Plugins    map[string]string `yaml:"plugins"`
}

var knownCoreKeys = map[string]bool{
	"components": true,
	"profiles":   true,
	"plugins":    true,
}

// ParseCoreManifest parses and schema-validates a core manifest document.
// It rejects unknown top-level keys and missing required fields, returning
// a validation failure ready to be wrapped as xerrors.ManifestSchemaError
// by the resolver.
func ParseCoreManifest(data []byte) (*Manifest, error) {
	if err := rejectUnknownTopLevelKeys(data, knownCoreKeys); err != nil {
		return nil, err
	}

	var raw coreManifestYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse core manifest: %w", err)
	}

	m := &Manifest{
		Components: raw.Components,
		Profiles:   raw.Profiles,
		Plugins:    raw.Plugins,
	}

	if err := validatorInstance().Struct(m); err != nil {
		return nil, fmt.Errorf("validate core manifest: %w", err)
	}

	return m, nil
}

// rejectUnknownTopLevelKeys decodes data as a generic mapping node and
// fails fast on any key not in allowed — this is what spec.md §4.1 calls
// "reject ... unknown top-level keys".
func rejectUnknownTopLevelKeys(data []byte, allowed map[string]bool) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if len(node.Content) == 0 {
		return nil
	}
	doc := node.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		if !allowed[key] {
			return fmt.Errorf("unknown top-level key %q", key)
		}
	}
	return nil
}

var sharedValidator *validator.Validate

func validatorInstance() *validator.Validate {
	if sharedValidator == nil {
		sharedValidator = validator.New()
	}
	return sharedValidator
}
