package resolver

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// Phase names one state of the per-invocation Resolver state machine
// (spec.md §4.1: "Loading → Validated → Composed → Ordered → Ready").
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseValidated Phase = "validated"
	PhaseComposed  Phase = "composed"
	PhaseOrdered   Phase = "ordered"
	PhaseReady     Phase = "ready"
	PhaseFailed    Phase = "failed"
)

const (
	eventLoaded    = "LOADED"
	eventValidated = "VALIDATED"
	eventComposed  = "COMPOSED"
	eventOrdered   = "ORDERED"
	eventFailed    = "FAILED"
)

// runContext is the statekit context threaded through the machine. The
// machine exists to make the Loading → Validated → Composed → Ordered →
// Ready sequence an assertable invariant rather than an implicit
// convention; Resolve still returns early with the single typed error a
// step produced, per spec.md §4.1 ("no partial ResolvedSpec is returned").
type runContext struct{}

// Input is everything one Resolve invocation needs.
type Input struct {
	FS                ports.FileSystem
	CorePath          string
	PluginRoots       map[string]string
	ProfileName       string // "" to resolve every component across core+plugins
	EnabledPlugins    []string
	Policy            CompositionPolicy
}

// Result is the Resolver's successful terminal state: a fully validated,
// composed, and ordered installation plan input.
type Result struct {
	Spec        *ResolvedSpec
	Order       []ComponentRef
	Composition *CompositionResult
}

// Resolve drives the Loading → Validated → Composed → Ordered → Ready
// machine for one invocation (spec.md §4.1). Each phase transition
// corresponds to exactly one of the Resolver's pure operations; a
// failure at any phase transitions to Failed and Resolve returns the
// single typed error produced there.
func Resolve(in Input) (*Result, error) {
	machine, err := buildResolverMachine()
	if err != nil {
		return nil, fmt.Errorf("build resolver state machine: %w", err)
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	defer interp.Stop()

	spec, err := LoadManifests(in.FS, in.CorePath, in.PluginRoots)
	if err != nil {
		interp.Send(statekit.Event{Type: eventFailed})
		return nil, err
	}
	interp.Send(statekit.Event{Type: eventLoaded})

	if err := Validate(spec); err != nil {
		interp.Send(statekit.Event{Type: eventFailed})
		return nil, err
	}
	interp.Send(statekit.Event{Type: eventValidated})

	composition, err := ComposeTargetSchema(spec, orderedPluginIDs(spec, in), in.Policy)
	if err != nil {
		interp.Send(statekit.Event{Type: eventFailed})
		return nil, err
	}
	interp.Send(statekit.Event{Type: eventComposed})

	components, err := selectComponents(spec, in.ProfileName)
	if err != nil {
		interp.Send(statekit.Event{Type: eventFailed})
		return nil, err
	}

	order, err := ResolveOrder(components)
	if err != nil {
		interp.Send(statekit.Event{Type: eventFailed})
		return nil, err
	}
	interp.Send(statekit.Event{Type: eventOrdered})

	if Phase(interp.State().Value) != PhaseReady {
		return nil, fmt.Errorf("resolver machine ended in unexpected phase %q", interp.State().Value)
	}

	return &Result{Spec: spec, Order: order, Composition: composition}, nil
}

// orderedPluginIDs sorts in.EnabledPlugins into install order, or every
// loaded plugin when the caller named none. A caller-supplied order is
// not preserved.
func orderedPluginIDs(spec *ResolvedSpec, in Input) []string {
	if len(in.EnabledPlugins) == 0 {
		ids := make([]string, 0, len(spec.Plugins))
		for id := range spec.Plugins {
			ids = append(ids, id)
		}
		return sortPluginsByInstallOrder(spec, ids)
	}
	return sortPluginsByInstallOrder(spec, in.EnabledPlugins)
}

// selectComponents resolves the component set a Resolve call operates
// over: every component, or just one profile's members.
func selectComponents(spec *ResolvedSpec, profileName string) ([]manifest.Component, error) {
	if profileName == "" {
		return spec.AllComponents(), nil
	}
	components, ok := spec.ComponentsForProfile(profileName)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", profileName)
	}
	return components, nil
}

// buildResolverMachine constructs the Loading → Validated → Composed →
// Ordered → Ready statekit machine, mirroring the builder style of
// internal/domain/agent.buildAgentMachine — generalized from an
// indefinitely-running reconciliation loop to one linear, terminating
// pipeline per invocation.
func buildResolverMachine() (*statekit.Machine[runContext], error) {
	return statekit.NewMachine[runContext]("resolver").
		WithInitial(string(PhaseLoading)).
		WithContext(runContext{}).
		State(string(PhaseLoading)).
		On(eventLoaded).Target(string(PhaseValidated)).
		On(eventFailed).Target(string(PhaseFailed)).Done().
		State(string(PhaseValidated)).
		On(eventValidated).Target(string(PhaseComposed)).
		On(eventFailed).Target(string(PhaseFailed)).Done().
		State(string(PhaseComposed)).
		On(eventComposed).Target(string(PhaseOrdered)).
		On(eventFailed).Target(string(PhaseFailed)).Done().
		State(string(PhaseOrdered)).
		On(eventOrdered).Target(string(PhaseReady)).
		On(eventFailed).Target(string(PhaseFailed)).Done().
		State(string(PhaseReady)).Done().
		State(string(PhaseFailed)).Done().
		Build()
}
