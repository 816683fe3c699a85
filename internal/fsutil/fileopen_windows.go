//go:build windows

package fsutil

import "os"

// openFileNoFollow opens a file for writing.
// O_NOFOLLOW is not available on Windows; WriteFileAtomic still refuses a
// symlinked destination via Lstat before the rename.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
