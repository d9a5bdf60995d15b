//go:build !windows

package fsutil

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileDurable writes data to path through a synced temporary file that
// is renamed over the target, so readers never observe a partial file.
func WriteFileDurable(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
