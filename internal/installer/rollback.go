package installer

import (
	"fmt"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/filesystem"
)

// rollback restores every backed-up file to its original location and
// discards the staging directory, in reverse backup order (spec.md §4.3
// "Rollback"). It never touches other components already promoted in
// this run.
func rollback(fs *filesystem.Real, guard *filesystem.Guard, backedUp []backedUpFile) error {
	var firstErr error

	for i := len(backedUp) - 1; i >= 0; i-- {
		bf := backedUp[i]
		// Rename preserves mode bits, so restoring the original file via
		// rename needs no separate chmod back to bf.mode.
		if err := renameWithRetry(fs, bf.backupPath, bf.originalPath); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("restore %s: %w", bf.originalPath, err)
			}
		}
	}

	if err := fs.SafeRemoveTree(guard.StageDir, filesystem.SentinelName); err != nil && firstErr == nil {
		firstErr = err
	}
	if fs.Exists(guard.BackupDir) {
		if err := fs.SafeRemoveTree(guard.BackupDir, filesystem.SentinelName); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
