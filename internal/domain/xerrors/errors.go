// Package xerrors defines the typed error taxonomy the engine surfaces to
// its callers. Every error is a Kind plus a small, structured payload —
// callers branch on Kind, never on message text.
package xerrors

import (
	"fmt"
	"strings"
)

// Kind categorizes an engine error. Kinds are stable and machine-parseable.
type Kind string

const (
	KindManifestSchema Kind = "MANIFEST_SCHEMA"
	KindDep             Kind = "DEP"
	KindConflict        Kind = "CONFLICT"
	KindValidation      Kind = "VALIDATION"
	KindDrift           Kind = "DRIFT"
	KindSafety          Kind = "SAFETY"
	KindIO              Kind = "IO"
	KindBusy            Kind = "BUSY"
)

// Error is the single concrete error type for every Kind in the taxonomy.
// It carries enough structure for a shell to render a report as described
// in spec.md §7: { component, kind, path?, expected?, actual?, remediation? }.
type Error struct {
	Kind        Kind
	Message     string
	Component   string
	Path        string
	Expected    string
	Actual      string
	Remediation string
	Plugins     []string // populated for conflict errors naming more than one contributor
	Cycle       []string // populated for dependency-cycle errors
	Underlying  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("component %q", e.Component))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path %q", e.Path))
	}
	if len(parts) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Kind, strings.Join(parts, ", "), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped error for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// remediations maps each Kind to the single recommended remediation phrase
// spec.md §7 requires ("Every error kind maps to exactly one recommended
// remediation phrase").
var remediations = map[Kind]string{
	KindManifestSchema: "Fix the manifest fields reported above and re-run.",
	KindDep:             "Break the cycle or add the missing dependency/structure entry.",
	KindConflict:        "Choose an explicit merge strategy for the conflicting path, or remove one contributor.",
	KindValidation:      "Resolve the flagged pattern, undefined variable, or failing validation command.",
	KindDrift:           "Run doctor.diagnose for details, then doctor.repair to reconcile.",
	KindSafety:          "Inspect the staging/backup directory by hand; do not delete it without review.",
	KindIO:              "Check filesystem permissions and available space, then retry.",
	KindBusy:            "Wait for the other run to finish, or confirm no stale lock remains.",
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Remediation: remediations[kind]}
}

// NewManifestSchemaError reports a manifest that failed schema validation.
func NewManifestSchemaError(message string) *Error {
	return newError(KindManifestSchema, message)
}

// NewMissingDepError reports a component dependency that does not exist.
func NewMissingDepError(component, dependsOn string) *Error {
	e := newError(KindDep, fmt.Sprintf("depends on %q which does not exist", dependsOn))
	e.Component = component
	return e
}

// NewCyclicDepError reports a dependency cycle, naming every component in it.
func NewCyclicDepError(cycle []string) *Error {
	e := newError(KindDep, fmt.Sprintf("cyclic dependency: %s", strings.Join(cycle, " -> ")))
	e.Cycle = cycle
	return e
}

// NewUnsatisfiedStructureError reports a plugin's requires_structure entry
// that the composition of core + enabled plugins does not satisfy.
func NewUnsatisfiedStructureError(plugin, path string) *Error {
	e := newError(KindDep, fmt.Sprintf("plugin %q requires structure entry %q, which nothing provides", plugin, path))
	e.Path = path
	return e
}

// NewConflictError reports a strict overlap between two or more plugins at
// the same composed path.
func NewConflictError(path string, plugins []string) *Error {
	e := newError(KindConflict, fmt.Sprintf("strict conflict at %q between %s", path, strings.Join(plugins, ", ")))
	e.Path = path
	e.Plugins = plugins
	return e
}

// NewValidationError reports a pattern resolving to zero files, an
// undefined template variable, or a failed validation.command.
func NewValidationError(component, message string) *Error {
	e := newError(KindValidation, message)
	e.Component = component
	return e
}

// NewDriftError reports a receipt disagreeing with the filesystem.
func NewDriftError(component, path, expected, actual string) *Error {
	e := newError(KindDrift, "recorded hash does not match current content")
	e.Component = component
	e.Path = path
	e.Expected = expected
	e.Actual = actual
	return e
}

// NewSafetyError reports a sentinel mismatch or an attempt to remove an
// un-owned directory.
func NewSafetyError(component, path, message string) *Error {
	e := newError(KindSafety, message)
	e.Component = component
	e.Path = path
	return e
}

// NewIOError wraps an underlying adapter failure.
func NewIOError(message string, underlying error) *Error {
	e := newError(KindIO, message)
	e.Underlying = underlying
	return e
}

// NewBusyError reports lock contention against the target repository.
func NewBusyError(path string) *Error {
	e := newError(KindBusy, "another run holds the lock")
	e.Path = path
	return e
}

// Is makes errors.Is(err, &xerrors.Error{Kind: xerrors.KindConflict})
// match any *Error of the same Kind; callers more commonly use As and
// inspect Kind directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
