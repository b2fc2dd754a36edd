package planner

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/hashing"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/plan"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/receipt"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
	"github.com/doylet/guardrails-ai-sub001/internal/resolver"
)

// Planner computes an InstallPlan from a resolved, ordered spec by
// comparing source content, target content, and the receipt store —
// without writing anything (spec.md §4.2). It mirrors the teacher's
// execution.Planner: Plan walks the resolved order and asks each
// component in turn what it needs, accumulating the answers.
type Planner struct {
	Sources  ports.FileSystem
	Target   ports.FileSystem
	Receipts ports.ReceiptStore
	// SourceRoot is where each component's declared Files are read from;
	// TargetRoot is the repository root file actions are relative to.
	SourceRoot string
	TargetRoot string
	Force      bool
}

// New builds a Planner ready to plan against the given roots and stores.
func New(sources, target ports.FileSystem, receipts ports.ReceiptStore, sourceRoot, targetRoot string, force bool) *Planner {
	return &Planner{
		Sources:    sources,
		Target:     target,
		Receipts:   receipts,
		SourceRoot: sourceRoot,
		TargetRoot: targetRoot,
		Force:      force,
	}
}

// Plan builds the InstallPlan for a resolver.Result's ordered components,
// resolving each component's variable namespace from its owning plugin's
// Configuration (core components have none).
func (p *Planner) Plan(result *resolver.Result) (*plan.InstallPlan, error) {
	byQualified := make(map[string]manifest.Component)
	for _, c := range result.Spec.AllComponents() {
		byQualified[c.QualifiedName()] = c
	}

	out := plan.NewInstallPlan()
	for _, ref := range result.Order {
		c, ok := byQualified[ref.QualifiedName()]
		if !ok {
			return nil, fmt.Errorf("resolved order names unknown component %q", ref.QualifiedName())
		}

		variables := p.variableNamesFor(result, c)
		cp, err := p.planComponent(c, variables)
		if err != nil {
			return nil, fmt.Errorf("plan component %q: %w", c.QualifiedName(), err)
		}
		out.Add(cp)
	}
	return out, nil
}

// variableNamesFor returns the whitelist of ${name} references a
// component's files may be TEMPLATEd against: the owning plugin's
// declared configuration namespace, or nil for core components.
func (p *Planner) variableNamesFor(result *resolver.Result, c manifest.Component) map[string]bool {
	if c.PluginID == "" {
		return nil
	}
	pm, ok := result.Spec.Plugins[c.PluginID]
	if !ok || pm.Configuration == nil {
		return nil
	}
	return pm.Configuration.VariableNames()
}

// planComponent implements the per-component algorithm of spec.md §4.2:
// compute the manifest digest, fast-path to all-SKIP when the receipt
// already matches it and every tracked file is unchanged, otherwise
// classify and diff every declared file individually.
func (p *Planner) planComponent(c manifest.Component, variables map[string]bool) (plan.ComponentPlan, error) {
	digest, err := hashing.ManifestDigest(hashing.ManifestDigestInput{
		Name:         c.Name,
		PluginID:     c.PluginID,
		Files:        c.Files,
		TargetPrefix: c.TargetPrefix,
		Dependencies: c.Dependencies,
		InstallOrder: c.InstallOrder,
		Required:     c.Required,
		PostInstall:  c.PostInstall,
	})
	if err != nil {
		return plan.ComponentPlan{}, err
	}

	cp := plan.ComponentPlan{
		Name:           c.Name,
		PluginID:       c.PluginID,
		ManifestDigest: digest,
	}

	rcpt, hasReceipt, err := p.Receipts.Get(c.QualifiedName())
	if err != nil {
		return plan.ComponentPlan{}, err
	}

	classified, err := p.classifyFiles(c, variables)
	if err != nil {
		return plan.ComponentPlan{}, err
	}

	if !p.Force && hasReceipt && rcpt.ManifestDigest == digest {
		unchanged, err := p.allFilesUnchanged(classified, rcpt)
		if err != nil {
			return plan.ComponentPlan{}, err
		}
		if unchanged {
			cp.Actions = p.skipActions(classified, rcpt)
			return cp, nil
		}
	}

	actions, err := p.planFiles(classified, rcpt, hasReceipt)
	if err != nil {
		return plan.ComponentPlan{}, err
	}
	cp.Actions = actions
	return cp, nil
}

// classifiedFile is one source file after classify has chosen its kind
// and final destination path, with its source content and mode already
// read — computed once per Plan call and shared by the fast path and the
// full per-file diff so both agree on where a file lands.
type classifiedFile struct {
	src     string
	dst     string
	kind    plan.ActionKind
	content []byte
	mode    uint32
}

// classifyFiles reads and classifies every file a component declares.
func (p *Planner) classifyFiles(c manifest.Component, variables map[string]bool) ([]classifiedFile, error) {
	out := make([]classifiedFile, 0, len(c.Files))
	for _, src := range c.Files {
		content, err := p.Sources.ReadFile(filepath.Join(p.SourceRoot, src))
		if err != nil {
			return nil, err
		}
		mode, _, err := p.Sources.Stat(filepath.Join(p.SourceRoot, src))
		if err != nil {
			return nil, err
		}
		kind, classifiedPath := classify(src, content, variables)
		out = append(out, classifiedFile{
			src:     src,
			dst:     destPath(c, classifiedPath),
			kind:    kind,
			content: content,
			mode:    uint32(mode.Perm()),
		})
	}
	return out, nil
}

// allFilesUnchanged reports whether every file the receipt tracks for
// this component still hashes to the recorded value in the target — the
// fast path that lets an unmodified, already-current component skip
// per-file diffing entirely.
func (p *Planner) allFilesUnchanged(files []classifiedFile, r receipt.Receipt) (bool, error) {
	for _, f := range files {
		tracked, ok := r.FileByPath(f.dst)
		if !ok {
			return false, nil
		}
		targetAbs := filepath.Join(p.TargetRoot, f.dst)
		if !p.Target.Exists(targetAbs) {
			return false, nil
		}
		content, err := p.Target.ReadFile(targetAbs)
		if err != nil {
			return false, err
		}
		if hashing.SHA256Bytes(content) != tracked.SHA256 {
			return false, nil
		}
	}
	return true, nil
}

// skipActions builds the all-SKIP action list for the fast path, in the
// same stable dst_path order planFiles would otherwise produce.
func (p *Planner) skipActions(files []classifiedFile, r receipt.Receipt) []plan.FileAction {
	actions := make([]plan.FileAction, 0, len(files))
	for _, f := range files {
		mode := f.mode
		if tracked, ok := r.FileByPath(f.dst); ok {
			mode = tracked.Mode
		}
		actions = append(actions, plan.FileAction{
			Kind:    plan.KindSkip,
			SrcPath: f.src,
			DstPath: f.dst,
			Mode:    mode,
			Reason:  plan.ReasonUnchanged,
		})
	}
	sortActions(actions)
	return actions
}

// planFiles computes one FileAction per declared source file, in
// lexicographic dst_path order (spec.md §4.2 step 5: "emit actions in
// stable order").
func (p *Planner) planFiles(files []classifiedFile, r receipt.Receipt, hasReceipt bool) ([]plan.FileAction, error) {
	actions := make([]plan.FileAction, 0, len(files))

	for _, f := range files {
		reason, resolvedKind, err := p.classifyReason(f.dst, f.content, f.kind, r, hasReceipt)
		if err != nil {
			return nil, err
		}

		actions = append(actions, plan.FileAction{
			Kind:    resolvedKind,
			SrcPath: f.src,
			DstPath: f.dst,
			Mode:    f.mode,
			Reason:  reason,
		})
	}

	sortActions(actions)
	return actions, nil
}

// classifyReason decides an individual file's Reason and action kind
// (spec.md §4.2 step 4: new files without a prior receipt are "new"; a
// file whose receipt hash no longer matches the target has drifted and
// proceeds unconditionally through its classified kind so the Installer
// backs up the diverged content and re-materializes it; a changed source
// is "hash-diff" with the classifier's chosen kind; an unchanged file is
// "unchanged" and SKIP, or keeps the classifier's kind when Force is set).
func (p *Planner) classifyReason(dst string, srcContent []byte, kind plan.ActionKind, r receipt.Receipt, hasReceipt bool) (plan.Reason, plan.ActionKind, error) {
	targetAbs := filepath.Join(p.TargetRoot, dst)
	targetExists := p.Target.Exists(targetAbs)

	tracked, wasTracked := receipt.InstalledFile{}, false
	if hasReceipt {
		tracked, wasTracked = r.FileByPath(dst)
	}

	// No prior receipt entry for this file, or no prior target at all: a
	// first-time adoption, never drift — there is nothing to have diverged
	// from.
	if !wasTracked || !targetExists {
		return plan.ReasonNew, kind, nil
	}

	targetContent, err := p.Target.ReadFile(targetAbs)
	if err != nil {
		return "", "", err
	}
	targetSHA := hashing.SHA256Bytes(targetContent)

	if targetSHA != tracked.SHA256 {
		return plan.ReasonDrift, kind, nil
	}

	srcSHA := hashing.SHA256Bytes(srcContent)
	if srcSHA == tracked.SHA256 && targetSHA == tracked.SHA256 {
		if p.Force {
			return plan.ReasonUnchanged, kind, nil
		}
		return plan.ReasonUnchanged, plan.KindSkip, nil
	}

	return plan.ReasonHashDiff, kind, nil
}

// destPath joins a component's target prefix onto a declared source path,
// the same rule classify's MERGE/COPY/TEMPLATE paths and the fast path
// must agree on.
func destPath(c manifest.Component, src string) string {
	if c.TargetPrefix == "" {
		return src
	}
	return filepath.Join(c.TargetPrefix, src)
}

// sortActions imposes the stable dst_path order spec.md §4.2 requires,
// making InstallPlan.Serialize byte-identical for byte-identical inputs
// (spec.md §8 property 1).
func sortActions(actions []plan.FileAction) {
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].DstPath < actions[j].DstPath
	})
}
