package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SentinelName is the marker file whose presence SafeRemoveTree requires
// before it will remove a staging or backup directory (spec.md §4.3, §6).
const SentinelName = ".guardrails-stage-marker"

// Guard represents ownership of one component's staging (and, once
// created, backup) directory for the duration of a transaction.
type Guard struct {
	Component  string
	StageDir   string
	BackupDir  string
	RunID      string
}

// Stage creates <root>/.ai/guardrails/.staging/<component>/ and writes
// its sentinel, recording the calling process and wall clock (spec.md
// §4.3 step 1).
func Stage(fs *Real, root, component string) (*Guard, error) {
	stageDir := filepath.Join(root, ".ai", "guardrails", ".staging", component)
	if err := fs.MkdirAll(stageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	runID := uuid.NewString()
	marker := fmt.Sprintf("component=%s\npid=%d\nrun_id=%s\nstarted_at=%s\n",
		component, os.Getpid(), runID, time.Now().UTC().Format(time.RFC3339Nano))

	if err := fs.AtomicWrite(filepath.Join(stageDir, SentinelName), []byte(marker), 0o644); err != nil {
		return nil, fmt.Errorf("write stage sentinel: %w", err)
	}

	return &Guard{
		Component: component,
		StageDir:  stageDir,
		BackupDir: filepath.Join(root, ".ai", "guardrails", ".backup", component),
		RunID:     runID,
	}, nil
}

// EnsureBackupDir lazily creates the backup directory and its sentinel the
// first time a file needs to be backed up (spec.md §4.3 step 3).
func (g *Guard) EnsureBackupDir(fs *Real) error {
	if fs.Exists(g.BackupDir) {
		return nil
	}
	if err := fs.MkdirAll(g.BackupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	marker := fmt.Sprintf("component=%s\npid=%d\nrun_id=%s\n", g.Component, os.Getpid(), g.RunID)
	return fs.AtomicWrite(filepath.Join(g.BackupDir, SentinelName), []byte(marker), 0o644)
}

// Cleanup removes the staging and, if present, backup directories. It
// refuses (SafetyError upstream) if either is missing its sentinel.
func (g *Guard) Cleanup(fs *Real) error {
	if err := fs.SafeRemoveTree(g.StageDir, SentinelName); err != nil {
		return err
	}
	if fs.Exists(g.BackupDir) {
		if err := fs.SafeRemoveTree(g.BackupDir, SentinelName); err != nil {
			return err
		}
	}
	return nil
}
