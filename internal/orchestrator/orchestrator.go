// Package orchestrator sequences the Resolver, Planner, Installer, and
// Doctor into the operator-facing operations a shell drives: list, plan,
// install, uninstall, and doctor (spec.md §2, §5). It is the only package
// that acquires the repository lock and the only package the command
// layer talks to directly.
package orchestrator

import (
	"context"
	"path/filepath"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/filesystem"
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/receipts"
	"github.com/doylet/guardrails-ai-sub001/internal/doctor"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/plan"
	"github.com/doylet/guardrails-ai-sub001/internal/installer"
	"github.com/doylet/guardrails-ai-sub001/internal/planner"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
	"github.com/doylet/guardrails-ai-sub001/internal/resolver"
)

// lockFileName is the sentinel the Locker guards, rooted under the
// target repository's own tree per spec.md §5.
const lockFileName = ".lock"

// Request is everything one invocation needs to resolve a spec: where the
// core manifest and plugin roots live, which profile or plugin set to
// install, and the composition policy to resolve INTERACTIVE conflicts.
type Request struct {
	CorePath       string
	PluginRoots    map[string]string
	ProfileName    string
	EnabledPlugins []string
	Callback       ports.ResolverCallback
}

// Orchestrator wires the Resolver/Planner/Installer/Doctor pipeline
// against one target repository. It is built once per invocation by the
// command layer, the way preflight's app.Preflight façade is built once
// per CLI invocation with its adapters already resolved.
type Orchestrator struct {
	Sources  ports.FileSystem
	Target   *filesystem.Real
	Receipts ports.ReceiptStore
	Clock    ports.Clock
	Locker   ports.Locker
	Runner   ports.CommandRunner
	Logger   ports.Logger

	SourceRoot    string
	TargetRoot    string
	EngineVersion string

	// Force, when true, makes the Planner re-stage every component
	// regardless of receipt state (spec.md §4.2 "force reinstall").
	Force bool
}

// New builds an Orchestrator rooted at sourceRoot (where component files
// are read from) and targetRoot (the repository configuration is
// installed into), wiring the real filesystem and receipt adapters.
func New(sourceRoot, targetRoot, engineVersion string, logger ports.Logger) *Orchestrator {
	target := filesystem.New()
	return &Orchestrator{
		Sources:       target,
		Target:        target,
		Receipts:      receipts.New(target, targetRoot),
		Clock:         ports.SystemClock{},
		Locker:        &FileLocker{},
		Logger:        logger,
		SourceRoot:    sourceRoot,
		TargetRoot:    targetRoot,
		EngineVersion: engineVersion,
	}
}

// lockPath is the advisory sentinel this Orchestrator acquires before any
// write operation (spec.md §5: "single filesystem-level lock ... held for
// the duration of one invocation").
func (o *Orchestrator) lockPath() string {
	return filepath.Join(o.TargetRoot, ".ai", "guardrails", lockFileName)
}

// withLock acquires the repository lock for the duration of fn, guarding
// every write operation (install, uninstall, doctor repair). Plan and
// List never call this — they only read.
func (o *Orchestrator) withLock(fn func() error) error {
	release, err := o.Locker.Acquire(o.lockPath())
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Resolve runs the Resolver for one request (spec.md §4.1). It never
// writes and never takes the lock.
func (o *Orchestrator) Resolve(req Request) (*resolver.Result, error) {
	policy := resolver.DefaultPolicy()
	policy.Callback = req.Callback

	return resolver.Resolve(resolver.Input{
		FS:             o.Sources,
		CorePath:       req.CorePath,
		PluginRoots:    req.PluginRoots,
		ProfileName:    req.ProfileName,
		EnabledPlugins: req.EnabledPlugins,
		Policy:         policy,
	})
}

// List resolves req and returns every component that would participate,
// in install order, without planning or touching the target repository.
func (o *Orchestrator) List(req Request) ([]manifest.Component, error) {
	result, err := o.Resolve(req)
	if err != nil {
		return nil, err
	}

	byQualified := make(map[string]manifest.Component, len(result.Order))
	for _, c := range result.Spec.AllComponents() {
		byQualified[c.QualifiedName()] = c
	}

	out := make([]manifest.Component, 0, len(result.Order))
	for _, ref := range result.Order {
		if c, ok := byQualified[ref.QualifiedName()]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Plan resolves req and runs the Planner against it, producing an
// InstallPlan without writing anything (spec.md §4.2). Like List, Plan
// never takes the lock — staging is what needs guarding, not planning.
func (o *Orchestrator) Plan(req Request) (*resolver.Result, *plan.InstallPlan, error) {
	result, err := o.Resolve(req)
	if err != nil {
		return nil, nil, err
	}

	p, err := o.planner().Plan(result)
	if err != nil {
		return result, nil, err
	}
	return result, p, nil
}

// Install resolves req, plans, and executes the plan against the target
// repository, holding the lock for the whole transaction (spec.md §5).
// dryRun requests stage+verify only, per spec.md §4.3 dry-run semantics.
func (o *Orchestrator) Install(ctx context.Context, req Request, dryRun bool) (*installer.ExecutionReport, error) {
	var report *installer.ExecutionReport
	err := o.withLock(func() error {
		result, p, err := o.Plan(req)
		if err != nil {
			return err
		}

		report, err = o.installer(result).Execute(ctx, p, dryRun, o.Force)
		return err
	})
	return report, err
}

// Uninstall removes every named qualified component's receipt-tracked
// files (spec.md §4.3 "uninstall"), holding the lock for the duration.
func (o *Orchestrator) Uninstall(ctx context.Context, components []string) (*installer.ExecutionReport, error) {
	var report *installer.ExecutionReport
	err := o.withLock(func() error {
		var err error
		report, err = o.installer(nil).Uninstall(ctx, components)
		return err
	})
	return report, err
}

// Doctor resolves req and runs Diagnose (policy == "" or PolicyReportOnly
// is the read-only path and never takes the lock) or Repair (any other
// policy writes through the Planner/Installer and takes the lock).
func (o *Orchestrator) Doctor(ctx context.Context, req Request, policy doctor.RepairPolicy) (*doctor.Report, error) {
	result, err := o.Resolve(req)
	if err != nil {
		return nil, err
	}

	d := o.doctor(result)
	if policy == "" || policy == doctor.PolicyReportOnly {
		return d.Diagnose(result)
	}

	var report *doctor.Report
	lockErr := o.withLock(func() error {
		var err error
		report, err = d.Repair(ctx, result, policy)
		return err
	})
	if lockErr != nil {
		return report, lockErr
	}
	return report, nil
}

func (o *Orchestrator) planner() *planner.Planner {
	return planner.New(o.Sources, o.Target, o.Receipts, o.SourceRoot, o.TargetRoot, o.Force)
}

func (o *Orchestrator) installer(result *resolver.Result) *installer.Installer {
	in := &installer.Installer{
		FS:            o.Target,
		Receipts:      o.Receipts,
		Clock:         o.Clock,
		Logger:        o.Logger,
		Runner:        o.Runner,
		SourceRoot:    o.SourceRoot,
		TargetRoot:    o.TargetRoot,
		EngineVersion: o.EngineVersion,
	}
	if result != nil && result.Composition != nil {
		in.Schema = result.Composition.Schema
		in.Validations = validationsFor(result)
	}
	return in
}

func (o *Orchestrator) doctor(result *resolver.Result) *doctor.Doctor {
	return &doctor.Doctor{
		FS:            o.Target,
		Receipts:      o.Receipts,
		TargetRoot:    o.TargetRoot,
		EngineVersion: o.EngineVersion,
		Planner:       o.planner(),
		Installer:     o.installer(result),
		Logger:        o.Logger,
	}
}

// validationsFor collects every component's declared validation.command,
// keyed by qualified name, so the Installer can run them during verify
// without the Resolver/Planner knowing about ports.CommandRunner at all.
func validationsFor(result *resolver.Result) map[string]*manifest.ValidationCommand {
	out := make(map[string]*manifest.ValidationCommand)
	for _, c := range result.Spec.AllComponents() {
		if c.Validation != nil {
			out[c.QualifiedName()] = c.Validation
		}
	}
	return out
}
