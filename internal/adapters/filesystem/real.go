// Package filesystem implements ports.FileSystem against the real OS
// filesystem, plus the staging/backup guard primitives the Installer
// builds its transactions on (spec.md §4.3, §4.5).
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// Real implements ports.FileSystem using actual filesystem operations.
type Real struct{}

// New creates a Real filesystem adapter.
func New() *Real {
	return &Real{}
}

// ReadFile reads a file's full contents.
func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists reports whether path exists (file, dir, or symlink).
func (r *Real) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path is a directory.
func (r *Real) IsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Stat returns path's mode and size.
func (r *Real) Stat(path string) (os.FileMode, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Mode(), info.Size(), nil
}

// MkdirAll creates path and any missing parents.
func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Rename performs a same-filesystem rename. Callers needing cross-device
// safety should use AtomicWrite instead (spec.md §4.3 promote step).
func (r *Real) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// Remove removes a single file or empty directory.
func (r *Real) Remove(path string) error {
	return os.Remove(path)
}

// AtomicWrite writes data to path via write-temp -> fsync -> rename in the
// destination directory, so a crash mid-write never leaves a partial file
// in place (spec.md §4.3 promote step, §4.5 fs.atomic_write).
func (r *Real) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// SafeRemoveTree removes dir recursively only if it contains a file named
// sentinelName — protection against deleting user-owned content
// (spec.md §4.3 cleanup step, §8 property 5).
func (r *Real) SafeRemoveTree(dir, sentinelName string) error {
	sentinel := filepath.Join(dir, sentinelName)
	if _, err := os.Stat(sentinel); err != nil {
		return fmt.Errorf("refusing to remove %s: missing sentinel %s", dir, sentinelName)
	}
	return os.RemoveAll(dir)
}

// CopyFile byte-copies src to dst, preserving the given mode. Used by the
// Installer's COPY action.
func CopyFile(fs *Real, src, dst string, perm os.FileMode) error {
	data, err := fs.ReadFile(src)
	if err != nil {
		return err
	}
	return fs.AtomicWrite(dst, data, perm)
}

// Ensure Real implements ports.FileSystem.
var _ ports.FileSystem = (*Real)(nil)
