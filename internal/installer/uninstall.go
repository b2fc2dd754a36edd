package installer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/hashing"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/xerrors"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// Uninstall removes every recorded file of each named component, deleting
// the component's receipt only if every file was removed cleanly (spec.md
// §4.3 "Uninstall"). A file whose current sha256 no longer matches the
// receipt is left in place and flagged as drift; the receipt is kept so
// the drifted file is not forgotten (DESIGN.md Open Question #3: refuse
// per-file on drift, proceed for the rest).
func (in *Installer) Uninstall(ctx context.Context, components []string) (*ExecutionReport, error) {
	report := &ExecutionReport{}

	for _, qualified := range components {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		result, err := in.uninstallComponent(ctx, qualified)
		report.Add(result)
		if err != nil && in.Logger != nil {
			in.Logger.Warn(ctx, "uninstall reported drift or error", ports.F("component", qualified), ports.F("error", err.Error()))
		}
	}
	return report, nil
}

func (in *Installer) uninstallComponent(ctx context.Context, qualified string) (ComponentResult, error) {
	name, pluginID := splitQualified(qualified)

	r, ok, err := in.Receipts.Get(qualified)
	if err != nil {
		return ComponentResult{Component: name, PluginID: pluginID, Status: StatusFailed}, xerrors.NewIOError(fmt.Sprintf("read receipt for %q", qualified), err)
	}
	if !ok {
		return ComponentResult{Component: name, PluginID: pluginID, Status: StatusSkipped}, nil
	}

	anyDrifted := false
	for _, f := range r.InstalledFiles {
		targetPath := filepath.Join(in.TargetRoot, f.Path)
		if !in.FS.Exists(targetPath) {
			continue // already gone; nothing to drift-check
		}

		content, err := in.FS.ReadFile(targetPath)
		if err != nil {
			anyDrifted = true
			continue
		}
		if hashing.SHA256Bytes(content) != f.SHA256 {
			anyDrifted = true
			if in.Logger != nil {
				in.Logger.Warn(ctx, "refusing to remove drifted file", ports.F("component", qualified), ports.F("path", f.Path))
			}
			continue
		}

		if err := in.FS.Remove(targetPath); err != nil {
			anyDrifted = true
		}
	}

	if anyDrifted {
		return ComponentResult{
			Component: name,
			PluginID:  pluginID,
			Status:    StatusFailed,
			Error:     xerrors.NewDriftError(qualified, "", "", ""),
		}, xerrors.NewDriftError(qualified, "", "", "")
	}

	if err := in.Receipts.Delete(qualified); err != nil {
		return ComponentResult{Component: name, PluginID: pluginID, Status: StatusFailed}, xerrors.NewIOError(fmt.Sprintf("delete receipt for %q", qualified), err)
	}
	return ComponentResult{Component: name, PluginID: pluginID, Status: StatusPromoted}, nil
}

// splitQualified reverses manifest.Component.QualifiedName's "<plugin>/<name>"
// shape without importing the manifest package from installer.
func splitQualified(qualified string) (name, pluginID string) {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '/' {
			return qualified[i+1:], qualified[:i]
		}
	}
	return qualified, ""
}
