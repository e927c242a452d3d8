//go:build !windows

package files

import "os"

func renameAtomic(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// Reparse points are a Windows concept; symlinks are caught by Lstat.
func isReparsePoint(string) (bool, error) {
	return false, nil
}

// syncDir makes a completed rename durable.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
