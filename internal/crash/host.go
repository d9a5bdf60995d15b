package crash

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
)

// ErrAppInfoUnavailable is returned when the application identity cannot be
// resolved.
var ErrAppInfoUnavailable = errors.New("application info unavailable")

// AppInfo identifies the running application.
type AppInfo struct {
	Name        string
	VersionName string
	VersionCode string
}

// Host is the environment the pipeline reads from at capture time.
type Host interface {
	AppInfo() (AppInfo, error)
	StorageRoot() (string, error)
}

// StaticHost serves fixed values. An empty Root resolves to the user cache
// directory.
type StaticHost struct {
	Info    AppInfo
	InfoErr error
	Root    string
}

// AppInfo returns h.Info, or h.InfoErr when set.
func (h StaticHost) AppInfo() (AppInfo, error) {
	if h.InfoErr != nil {
		return AppInfo{}, h.InfoErr
	}
	return h.Info, nil
}

// StorageRoot returns h.Root or the default storage root.
func (h StaticHost) StorageRoot() (string, error) {
	if h.Root != "" {
		return h.Root, nil
	}
	return DefaultStorageRoot()
}

// BuildInfoHost reads the application identity from the build information
// embedded in the binary. Non-empty VersionName and VersionCode take
// precedence, which lets release builds inject them with -ldflags.
type BuildInfoHost struct {
	Root        string
	VersionName string
	VersionCode string
}

// AppInfo resolves the module path, version and VCS revision of the binary.
func (h BuildInfoHost) AppInfo() (AppInfo, error) {
	info := AppInfo{VersionName: h.VersionName, VersionCode: h.VersionCode}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		if info.VersionName == "" {
			return AppInfo{}, ErrAppInfoUnavailable
		}
		return info, nil
	}

	info.Name = bi.Main.Path
	if info.VersionName == "" {
		info.VersionName = bi.Main.Version
	}
	if info.VersionCode == "" {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.VersionCode = s.Value
				break
			}
		}
	}
	return info, nil
}

// StorageRoot returns h.Root or the default storage root.
func (h BuildInfoHost) StorageRoot() (string, error) {
	if h.Root != "" {
		return h.Root, nil
	}
	return DefaultStorageRoot()
}

// DefaultStorageRoot is the user cache directory.
func DefaultStorageRoot() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving storage root: %w", err)
	}
	return dir, nil
}
