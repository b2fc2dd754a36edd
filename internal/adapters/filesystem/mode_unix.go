//go:build !windows

package filesystem

import "os"

// NormalizeMode returns mode unchanged: POSIX permission bits round-trip
// exactly through source mode -> staged file -> promoted file on unix.
func NormalizeMode(mode os.FileMode) os.FileMode {
	return mode
}
