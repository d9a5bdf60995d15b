package config

import (
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/crashlog/internal/fsutil"
)

// AtomicWrite replaces the file at path with data, creating parent
// directories. An existing file keeps its permissions.
func AtomicWrite(path string, data []byte) error {
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return fsutil.WriteFileDurable(path, data, perm)
}
