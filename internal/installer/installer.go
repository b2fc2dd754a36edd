package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/filesystem"
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/hashing"
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/yamlops"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/plan"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/receipt"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/schema"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/xerrors"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// renameRetryDelay is the single backoff slept between the first and
// second attempt at a transient rename failure (spec.md §4.3 Failure
// semantics: "Retried locally: filesystem transient errors on rename —
// one retry with 50ms backoff").
const renameRetryDelay = 50 * time.Millisecond

// Installer runs an InstallPlan against a target repository: stage,
// verify, backup, promote, receipt, cleanup per component, in plan order
// (spec.md §4.3). It is the only package in the engine that writes to the
// target repository.
type Installer struct {
	FS       *filesystem.Real
	Receipts ports.ReceiptStore
	Clock    ports.Clock
	Logger   ports.Logger
	Runner   ports.CommandRunner // nil disables validation.command checks
	Schema   *schema.TargetSchema

	SourceRoot    string
	TargetRoot    string
	EngineVersion string
	Variables     yamlops.Vars // whitelisted ${name} substitutions for TEMPLATE actions

	// Validations maps a component's qualified name to its declared
	// validation.command, when the shell has wired a CommandRunner
	// (ports.CommandRunner doc: "only verification ... never installation
	// scripts"). A component with no entry here skips validation.
	Validations map[string]*manifest.ValidationCommand
}

// Execute runs every component in plan order, stopping at the first
// component whose transaction fails unless the caller has already
// filtered the plan (spec.md §4.3, §7: "default is to stop").
func (in *Installer) Execute(ctx context.Context, p *plan.InstallPlan, dryRun, force bool) (*ExecutionReport, error) {
	report := &ExecutionReport{}

	for _, cp := range p.Components {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		if !force && !cp.HasChanges() {
			report.Add(ComponentResult{Component: cp.Name, PluginID: cp.PluginID, Status: StatusSkipped})
			continue
		}

		result, err := in.executeComponent(ctx, cp, dryRun)
		report.Add(result)
		if err != nil {
			if in.Logger != nil {
				in.Logger.Error(ctx, "component transaction failed", ports.F("component", cp.QualifiedName()), ports.F("error", err.Error()))
			}
			report.Aborted = true
			return report, err
		}
	}
	return report, nil
}

// executeComponent runs stage -> verify -> backup -> promote -> receipt ->
// cleanup for one component, rolling back on any failure after backup
// begins (spec.md §4.3).
func (in *Installer) executeComponent(ctx context.Context, cp plan.ComponentPlan, dryRun bool) (ComponentResult, error) {
	qualified := cp.QualifiedName()

	guard, err := filesystem.Stage(in.FS, in.TargetRoot, qualified)
	if err != nil {
		return in.fail(cp, xerrors.NewIOError(fmt.Sprintf("stage component %q", qualified), err))
	}

	staged, err := in.materialize(cp, guard)
	if err != nil {
		_ = in.FS.SafeRemoveTree(guard.StageDir, filesystem.SentinelName)
		return in.fail(cp, err)
	}

	if err := in.verify(ctx, cp, staged); err != nil {
		_ = in.FS.SafeRemoveTree(guard.StageDir, filesystem.SentinelName)
		return in.fail(cp, err)
	}

	if dryRun {
		_ = in.FS.SafeRemoveTree(guard.StageDir, filesystem.SentinelName)
		return ComponentResult{Component: cp.Name, PluginID: cp.PluginID, Status: StatusDryRun}, nil
	}

	backedUp, err := in.backup(cp, guard, staged)
	if err != nil {
		if rbErr := rollback(in.FS, guard, backedUp); rbErr != nil && in.Logger != nil {
			in.Logger.Error(ctx, "rollback failed", ports.F("component", qualified), ports.F("error", rbErr.Error()))
		}
		return in.fail(cp, err)
	}

	if err := in.promote(staged); err != nil {
		if rbErr := rollback(in.FS, guard, backedUp); rbErr != nil && in.Logger != nil {
			in.Logger.Error(ctx, "rollback failed", ports.F("component", qualified), ports.F("error", rbErr.Error()))
		}
		return ComponentResult{Component: cp.Name, PluginID: cp.PluginID, Status: StatusRolledBack, Error: toXErr(err)}, err
	}

	r := in.buildReceipt(cp, staged)
	if err := in.Receipts.Put(qualified, r); err != nil {
		// Fatal per spec.md §7: receipt write failure after promote leaves
		// state unrecordable; the component stays promoted and the run
		// aborts without rollback.
		return in.fail(cp, xerrors.NewIOError(fmt.Sprintf("write receipt for %q", qualified), err))
	}

	if err := guard.Cleanup(in.FS); err != nil {
		return in.fail(cp, xerrors.NewSafetyError(qualified, guard.StageDir, err.Error()))
	}

	return ComponentResult{Component: cp.Name, PluginID: cp.PluginID, Status: StatusPromoted}, nil
}

// stagedFile is one action materialized into the staging directory, with
// the post-transform bytes the verify step re-hashes.
type stagedFile struct {
	action     plan.FileAction
	stagePath  string
	targetPath string
	content    []byte // nil for SKIP
}

// materialize executes stage step 1: every non-SKIP action is written
// into the component's staging directory as COPY, MERGE, or TEMPLATE
// output (spec.md §4.3 step 1).
func (in *Installer) materialize(cp plan.ComponentPlan, guard *filesystem.Guard) ([]stagedFile, error) {
	staged := make([]stagedFile, 0, len(cp.Actions))

	for _, a := range cp.Actions {
		targetPath := filepath.Join(in.TargetRoot, a.DstPath)
		stagePath := filepath.Join(guard.StageDir, a.DstPath)

		if a.Kind == plan.KindSkip {
			staged = append(staged, stagedFile{action: a, targetPath: targetPath})
			continue
		}

		content, err := in.transform(a, targetPath)
		if err != nil {
			return nil, xerrors.NewValidationError(cp.QualifiedName(), fmt.Sprintf("%s %s: %s", a.Kind, a.DstPath, err))
		}

		if err := in.FS.AtomicWrite(stagePath, content, os.FileMode(a.Mode)); err != nil {
			return nil, xerrors.NewIOError(fmt.Sprintf("stage %s", a.DstPath), err)
		}

		staged = append(staged, stagedFile{action: a, stagePath: stagePath, targetPath: targetPath, content: content})
	}
	return staged, nil
}

// transform produces the post-transform bytes for one non-SKIP action.
func (in *Installer) transform(a plan.FileAction, targetPath string) ([]byte, error) {
	srcPath := filepath.Join(in.SourceRoot, a.SrcPath)
	srcContent, err := in.FS.ReadFile(srcPath)
	if err != nil {
		return nil, err
	}

	switch a.Kind {
	case plan.KindCopy:
		return srcContent, nil

	case plan.KindMerge:
		format := formatForPath(a.DstPath)
		overlay, err := yamlops.Load(srcContent, format)
		if err != nil {
			return nil, err
		}

		base := overlay
		if in.FS.Exists(targetPath) {
			targetContent, err := in.FS.ReadFile(targetPath)
			if err != nil {
				return nil, err
			}
			base, err = yamlops.Load(targetContent, format)
			if err != nil {
				return nil, err
			}
			merged, err := yamlops.Merge(base, overlay)
			if err != nil {
				return nil, err
			}
			return yamlops.Dump(merged)
		}
		return yamlops.Dump(base)

	case plan.KindTemplate:
		return yamlops.TemplateText(srcContent, in.Variables)

	default:
		return nil, fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

// verify recomputes sha256 over the staged bytes, checks composed schema
// constraints this component is responsible for, and runs its declared
// validation.command if a CommandRunner has been wired (spec.md §4.3
// step 2).
func (in *Installer) verify(ctx context.Context, cp plan.ComponentPlan, staged []stagedFile) error {
	for _, sf := range staged {
		if sf.action.Kind == plan.KindSkip {
			continue
		}
		got := hashing.SHA256Bytes(sf.content)
		data, err := in.FS.ReadFile(sf.stagePath)
		if err != nil {
			return xerrors.NewIOError(fmt.Sprintf("reread staged %s", sf.action.DstPath), err)
		}
		if hashing.SHA256Bytes(data) != got {
			return xerrors.NewValidationError(cp.QualifiedName(), fmt.Sprintf("staged content for %s changed after write", sf.action.DstPath))
		}
	}

	if in.Schema != nil {
		if err := in.verifyOwnedSchemaEntries(cp, staged); err != nil {
			return err
		}
	}

	return in.runValidationCommand(ctx, cp)
}

// runValidationCommand shells out to a component's declared
// validation.command, if both the component declares one and the caller
// supplied a CommandRunner. A nonzero exit is a ValidationError.
func (in *Installer) runValidationCommand(ctx context.Context, cp plan.ComponentPlan) error {
	if in.Runner == nil {
		return nil
	}
	vc, ok := in.Validations[cp.QualifiedName()]
	if !ok || vc == nil {
		return nil
	}

	result, err := in.Runner.Run(ctx, vc.Command)
	if err != nil {
		return xerrors.NewValidationError(cp.QualifiedName(), fmt.Sprintf("validation command failed to run: %s", err))
	}
	if result.ExitCode != 0 {
		return xerrors.NewValidationError(cp.QualifiedName(), fmt.Sprintf("validation command %q exited %d: %s", vc.Command, result.ExitCode, result.Stderr))
	}
	return nil
}

// verifyOwnedSchemaEntries checks every required composed-schema entry
// owned by this component's plugin is either among its staged outputs or
// already present in the target — a
// narrower check than a full Doctor-style sweep, since the other
// components' paths are not this component's responsibility to verify.
func (in *Installer) verifyOwnedSchemaEntries(cp plan.ComponentPlan, staged []stagedFile) error {
	stagedPaths := make(map[string]bool, len(staged))
	for _, sf := range staged {
		stagedPaths[sf.action.DstPath] = true
	}

	for _, path := range in.Schema.Paths() {
		entry, ok := in.Schema.Get(path)
		if !ok || !entry.Required {
			continue
		}
		ownsIt := false
		for _, owner := range entry.OwnerPlugins {
			if owner == cp.PluginID {
				ownsIt = true
				break
			}
		}
		if !ownsIt {
			continue
		}
		if stagedPaths[path] || in.FS.Exists(filepath.Join(in.TargetRoot, path)) {
			continue
		}
		return xerrors.NewValidationError(cp.QualifiedName(), fmt.Sprintf("required structure entry %q not produced by its own component", path))
	}
	return nil
}

// backedUpFile is one pre-existing target path relocated to the backup
// directory, recorded so rollback can restore it.
type backedUpFile struct {
	originalPath string
	backupPath   string
	mode         os.FileMode
}

// backup implements stage 3: every dst_path that already exists is moved
// into the backup directory before promotion (spec.md §4.3 step 3).
func (in *Installer) backup(cp plan.ComponentPlan, guard *filesystem.Guard, staged []stagedFile) ([]backedUpFile, error) {
	var backedUp []backedUpFile

	for _, sf := range staged {
		if sf.action.Kind == plan.KindSkip {
			continue
		}
		if !in.FS.Exists(sf.targetPath) {
			continue
		}

		if err := guard.EnsureBackupDir(in.FS); err != nil {
			return backedUp, xerrors.NewIOError("create backup dir", err)
		}

		mode, _, err := in.FS.Stat(sf.targetPath)
		if err != nil {
			return backedUp, xerrors.NewIOError(fmt.Sprintf("stat %s before backup", sf.action.DstPath), err)
		}

		backupPath := filepath.Join(guard.BackupDir, sf.action.DstPath)
		if err := in.FS.MkdirAll(filepath.Dir(backupPath), 0o755); err != nil {
			return backedUp, xerrors.NewIOError("create backup subdir", err)
		}
		if err := renameWithRetry(in.FS, sf.targetPath, backupPath); err != nil {
			return backedUp, xerrors.NewIOError(fmt.Sprintf("back up %s", sf.action.DstPath), err)
		}

		backedUp = append(backedUp, backedUpFile{originalPath: sf.targetPath, backupPath: backupPath, mode: mode})
	}
	return backedUp, nil
}

// promote implements stage 4: staged files are renamed into place.
func (in *Installer) promote(staged []stagedFile) error {
	for _, sf := range staged {
		if sf.action.Kind == plan.KindSkip {
			continue
		}
		if err := in.FS.MkdirAll(filepath.Dir(sf.targetPath), 0o755); err != nil {
			return xerrors.NewIOError(fmt.Sprintf("create target dir for %s", sf.action.DstPath), err)
		}
		if err := renameWithRetry(in.FS, sf.stagePath, sf.targetPath); err != nil {
			return xerrors.NewIOError(fmt.Sprintf("promote %s", sf.action.DstPath), err)
		}
	}
	return nil
}

// renameWithRetry performs one rename attempt and, on failure, one retry
// after renameRetryDelay (spec.md §4.3, §7 "one retry with 50ms backoff").
func renameWithRetry(fs *filesystem.Real, oldPath, newPath string) error {
	if err := fs.Rename(oldPath, newPath); err != nil {
		time.Sleep(renameRetryDelay)
		return fs.Rename(oldPath, newPath)
	}
	return nil
}

// buildReceipt assembles the Receipt a successful promote writes.
func (in *Installer) buildReceipt(cp plan.ComponentPlan, staged []stagedFile) receipt.Receipt {
	r := receipt.Receipt{
		Component:      cp.Name,
		PluginID:       cp.PluginID,
		ManifestDigest: cp.ManifestDigest,
		InstalledAt:    in.Clock.Now(),
		EngineVersion:  in.EngineVersion,
	}

	for _, sf := range staged {
		if sf.action.Kind == plan.KindSkip {
			continue
		}
		r.InstalledFiles = append(r.InstalledFiles, receipt.InstalledFile{
			Path:   sf.action.DstPath,
			SHA256: hashing.SHA256Bytes(sf.content),
			Mode:   sf.action.Mode,
			Size:   int64(len(sf.content)),
		})
		r.SourceDigests = append(r.SourceDigests, receipt.SourceDigest{
			SrcPath: sf.action.SrcPath,
			SHA256:  hashing.SHA256Bytes(mustRead(in.FS, filepath.Join(in.SourceRoot, sf.action.SrcPath))),
		})
	}
	return r
}

// mustRead reads path, returning nil on error — used only for the source
// digest, whose input was already read successfully during materialize.
func mustRead(fs *filesystem.Real, path string) []byte {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

func (in *Installer) fail(cp plan.ComponentPlan, err error) (ComponentResult, error) {
	return ComponentResult{Component: cp.Name, PluginID: cp.PluginID, Status: StatusFailed, Error: toXErr(err)}, err
}

func toXErr(err error) *xerrors.Error {
	if xe, ok := err.(*xerrors.Error); ok {
		return xe
	}
	return nil
}

// formatForPath chooses the yamlops.Format to parse a MERGE target/source
// pair as, based on the destination's extension.
func formatForPath(path string) yamlops.Format {
	if filepath.Ext(path) == ".json" {
		return yamlops.FormatJSON
	}
	return yamlops.FormatYAML
}
