package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/mod/semver"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/hashing"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/installer"
	"github.com/doylet/guardrails-ai-sub001/internal/planner"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
	"github.com/doylet/guardrails-ai-sub001/internal/resolver"
)

// RepairPolicy names one of the three operator-chosen repair strategies
// of spec.md §4.4.
type RepairPolicy string

const (
	PolicyReportOnly     RepairPolicy = "report-only"
	PolicyRestoreMissing RepairPolicy = "restore-missing"
	PolicyReinstallStale RepairPolicy = "reinstall-stale"
)

// Doctor validates installed state against receipts and the composed
// target schema, and can optionally repair what it finds (spec.md §4.4).
// It never writes anything during Diagnose; Repair delegates every write
// to the Planner and Installer it was built with.
type Doctor struct {
	FS       ports.FileSystem
	Receipts ports.ReceiptStore

	TargetRoot    string
	EngineVersion string

	Planner   *planner.Planner
	Installer *installer.Installer
	Logger    ports.Logger
}

// Diagnose runs every check of spec.md §4.4 against the resolved spec and
// returns every finding. It touches no filesystem state beyond reads.
func (d *Doctor) Diagnose(result *resolver.Result) (*Report, error) {
	report := &Report{}

	if err := d.checkReceiptsAgainstDisk(report); err != nil {
		return nil, err
	}
	if err := d.checkComponentsHaveCurrentReceipts(result, report); err != nil {
		return nil, err
	}
	if err := d.checkComposedSchemaSatisfied(result, report); err != nil {
		return nil, err
	}
	if err := d.checkForDirtySentinelDirs(report); err != nil {
		return nil, err
	}

	return report, nil
}

// checkReceiptsAgainstDisk implements check 1: every recorded file of
// every receipt must exist and hash-match, or the component is flagged
// drift (hash mismatch) or missing (file gone).
func (d *Doctor) checkReceiptsAgainstDisk(report *Report) error {
	receipts, err := d.Receipts.List()
	if err != nil {
		return fmt.Errorf("list receipts: %w", err)
	}

	for _, r := range receipts {
		qualified := r.QualifiedName()
		for _, f := range r.InstalledFiles {
			targetAbs := filepath.Join(d.TargetRoot, f.Path)
			if !d.FS.Exists(targetAbs) {
				report.add(Finding{Kind: KindMissing, Component: qualified, Path: f.Path, Expected: f.SHA256, Detail: "receipt-tracked file is absent from disk"})
				continue
			}
			content, err := d.FS.ReadFile(targetAbs)
			if err != nil {
				return fmt.Errorf("read %s: %w", targetAbs, err)
			}
			actual := hashing.SHA256Bytes(content)
			if actual != f.SHA256 {
				report.add(Finding{Kind: KindDrift, Component: qualified, Path: f.Path, Expected: f.SHA256, Actual: actual})
			}
		}
	}
	return nil
}

// checkComponentsHaveCurrentReceipts implements check 2: every component
// in the resolved spec must have a receipt whose manifest_digest matches
// its current definition.
func (d *Doctor) checkComponentsHaveCurrentReceipts(result *resolver.Result, report *Report) error {
	for _, c := range result.Spec.AllComponents() {
		qualified := c.QualifiedName()

		digest, err := componentDigest(c)
		if err != nil {
			return fmt.Errorf("digest component %q: %w", qualified, err)
		}

		r, ok, err := d.Receipts.Get(qualified)
		if err != nil {
			return fmt.Errorf("get receipt %q: %w", qualified, err)
		}
		if !ok {
			report.add(Finding{Kind: KindMissing, Component: qualified, Detail: "no receipt recorded"})
			continue
		}
		if r.ManifestDigest != digest {
			report.add(Finding{Kind: KindStale, Component: qualified, Expected: digest, Actual: r.ManifestDigest, Detail: "manifest_digest no longer matches the resolved component"})
		}

		if d.EngineVersion != "" && semver.IsValid(d.EngineVersion) && semver.IsValid(r.EngineVersion) && semver.Compare(r.EngineVersion, d.EngineVersion) < 0 {
			report.add(Finding{Kind: KindStale, Component: qualified, Expected: d.EngineVersion, Actual: r.EngineVersion, Detail: "installed by an older engine version"})
		}
	}
	return nil
}

// checkComposedSchemaSatisfied implements check 3: every required
// composed-schema path must exist in the target repository.
func (d *Doctor) checkComposedSchemaSatisfied(result *resolver.Result, report *Report) error {
	if result.Composition == nil || result.Composition.Schema == nil {
		return nil
	}
	for _, entry := range result.Composition.Schema.Required() {
		if !d.FS.Exists(filepath.Join(d.TargetRoot, entry.Path)) {
			report.add(Finding{Kind: KindUnsatisfied, Path: entry.Path, Detail: "required structure path is absent"})
		}
	}
	return nil
}

// checkForDirtySentinelDirs implements check 4: leftover staging or
// backup directories from a previous, presumably interrupted, run.
func (d *Doctor) checkForDirtySentinelDirs(report *Report) error {
	for _, sub := range []string{".staging", ".backup"} {
		root := filepath.Join(d.TargetRoot, ".ai", "guardrails", sub)
		entries, err := listDirs(root)
		if err != nil {
			return err
		}
		for _, name := range entries {
			report.add(Finding{Kind: KindDirty, Path: filepath.Join(sub, name), Detail: "leftover from a previous run; recommend operator inspection before deleting"})
		}
	}
	return nil
}

// Repair runs Diagnose, then acts on the result per policy (spec.md §4.4
// "Repair policy"). report-only never calls the Planner or Installer.
func (d *Doctor) Repair(ctx context.Context, result *resolver.Result, policy RepairPolicy) (*Report, error) {
	report, err := d.Diagnose(result)
	if err != nil {
		return nil, err
	}
	if policy == PolicyReportOnly {
		return report, nil
	}

	var affected []string
	switch policy {
	case PolicyRestoreMissing:
		affected = append(report.ComponentsWith(KindMissing), report.ComponentsWith(KindDrift)...)
	case PolicyReinstallStale:
		affected = report.ComponentsWith(KindStale)
	default:
		return nil, fmt.Errorf("unknown repair policy %q", policy)
	}
	affected = dedupeStrings(affected)
	if len(affected) == 0 {
		return report, nil
	}

	restricted := restrictToComponents(result, affected)

	forcedPlanner := *d.Planner
	forcedPlanner.Force = true
	p, err := forcedPlanner.Plan(restricted)
	if err != nil {
		return report, fmt.Errorf("replan affected components: %w", err)
	}

	execReport, err := d.Installer.Execute(ctx, p, false, true)
	if err != nil {
		return report, fmt.Errorf("repair affected components: %w", err)
	}
	for _, cr := range execReport.Components {
		if cr.Status == installer.StatusPromoted {
			report.Repaired = append(report.Repaired, cr.Component)
		}
	}

	if d.Logger != nil {
		d.Logger.Info(ctx, "repair completed", ports.F("policy", string(policy)), ports.F("components", affected))
	}
	return report, nil
}

// componentDigest mirrors planner.planComponent's digest input exactly,
// so Doctor's staleness check agrees with what the Planner would compute.
func componentDigest(c manifest.Component) (string, error) {
	return hashing.ManifestDigest(hashing.ManifestDigestInput{
		Name:         c.Name,
		PluginID:     c.PluginID,
		Files:        c.Files,
		TargetPrefix: c.TargetPrefix,
		Dependencies: c.Dependencies,
		InstallOrder: c.InstallOrder,
		Required:     c.Required,
		PostInstall:  c.PostInstall,
	})
}

// restrictToComponents returns a shallow copy of result whose Order is
// filtered down to the named qualified components, per spec.md §4.4
// "restricted to those components". Spec and Composition are shared
// as-is; only which components the Planner walks changes.
func restrictToComponents(result *resolver.Result, qualifiedNames []string) *resolver.Result {
	want := make(map[string]bool, len(qualifiedNames))
	for _, n := range qualifiedNames {
		want[n] = true
	}

	filtered := &resolver.Result{Spec: result.Spec, Composition: result.Composition}
	for _, ref := range result.Order {
		if want[ref.QualifiedName()] {
			filtered.Order = append(filtered.Order, ref)
		}
	}
	return filtered
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// listDirs returns the immediate subdirectory names of root, or nil if
// root doesn't exist. Doctor needs a directory listing the ports.FileSystem
// contract doesn't expose, so — like receipts.Store.List — it reaches
// past the abstraction to os.ReadDir directly.
func listDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
