package crash

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/hugo-lorenzo-mato/crashlog/internal/fsutil"
)

// RuntimeOutputName is the file receiving unrecoverable runtime failures.
const RuntimeOutputName = "runtime_crash.log"

// CaptureRuntimeOutput appends the output of fatal runtime errors, which no
// deferred Recover can observe (concurrent map writes, out of memory, stack
// exhaustion), to RuntimeOutputName in dir. It returns the file path.
func CaptureRuntimeOutput(dir string) (string, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	path := filepath.Join(dir, RuntimeOutputName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, reportPerm)
	if err != nil {
		return "", fmt.Errorf("opening runtime output: %w", err)
	}
	// SetCrashOutput duplicates the descriptor.
	defer f.Close()

	if err := debug.SetCrashOutput(f, debug.CrashOptions{}); err != nil {
		return "", fmt.Errorf("setting crash output: %w", err)
	}
	return path, nil
}
