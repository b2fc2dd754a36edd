// Package ports declares the interfaces the engine consumes and never
// implements itself — the Adapters boundary of spec.md §6. Nothing in
// this package touches disk, a clock, or a terminal; it only names
// contracts.
package ports

import "os"

// FileSystem is the fs adapter contract: atomic IO plus the staging
// primitives the Installer needs (spec.md §4.5).
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
	IsDir(path string) bool
	Stat(path string) (os.FileMode, int64, error)
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldPath, newPath string) error
	Remove(path string) error

	// AtomicWrite writes data to path with the given mode such that the
	// file either ends up fully written or not written at all: a
	// write-temp -> fsync -> rename within the destination directory.
	AtomicWrite(path string, data []byte, perm os.FileMode) error

	// SafeRemoveTree removes dir recursively, but refuses if dir lacks the
	// expected sentinel file (spec.md §4.5, §8 property 5).
	SafeRemoveTree(dir, sentinelName string) error
}
