// Package manifest holds the declarative data model the engine reads:
// core manifests, plugin manifests, components, profiles, and plugin
// structure schemas. Parsing lives here too; manifest is a pure package —
// it touches no filesystem.
package manifest

// Component is a named unit of installable files with dependencies, an
// install order, and optional post-install actions. See spec.md §3.
type Component struct {
	Name         string             `yaml:"name" validate:"required"`
	PluginID     string             `yaml:"-"` // set by the loader for plugin-contributed components; empty for core
	Files        []string           `yaml:"files" validate:"required,min=1,dive,required"`
	TargetPrefix string             `yaml:"target_prefix,omitempty"`
	Dependencies []string           `yaml:"dependencies,omitempty"`
	InstallOrder int                `yaml:"install_order" validate:"gte=0,lte=99"`
	Required     bool               `yaml:"required,omitempty"`
	PostInstall  []string           `yaml:"post_install,omitempty"`
	Validation   *ValidationCommand `yaml:"validation,omitempty"`
}

// ValidationCommand is an optional shell-out check surfaced to the
// Installer's verify step when the caller supplies a CommandRunner.
type ValidationCommand struct {
	Command   string `yaml:"command" validate:"required"`
	Sandboxed bool   `yaml:"sandboxed,omitempty"`
}

// QualifiedName returns the namespaced identifier used for uniqueness and
// for (plugin_id, component_name) tie-breaking: "<plugin_id>/<name>" for
// plugin-contributed components, or the bare name for core components.
func (c Component) QualifiedName() string {
	if c.PluginID == "" {
		return c.Name
	}
	return c.PluginID + "/" + c.Name
}
