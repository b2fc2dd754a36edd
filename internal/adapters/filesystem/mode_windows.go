//go:build windows

package filesystem

import "os"

// NormalizeMode collapses a source mode to the read-only/read-write bit
// Windows actually honors; the rest of the permission bits recorded in a
// Receipt are still preserved byte-for-byte for hash/receipt purposes,
// but applying them to a real file on Windows only affects this bit.
func NormalizeMode(mode os.FileMode) os.FileMode {
	if mode&0o200 == 0 {
		return 0o444
	}
	return 0o666
}
