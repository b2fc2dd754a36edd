package manifest

// Profile is a named, ordered set of component names — the usual entry
// point into planning (spec.md §3).
type Profile struct {
	Name       string   `yaml:"name" validate:"required"`
	Components []string `yaml:"components" validate:"required,min=1"`
}
