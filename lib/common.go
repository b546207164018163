package cibox_lib

import (
	"os/user"
	"runtime"

	"github.com/elastic/go-sysinfo"
	"github.com/elastic/go-sysinfo/types"
	"github.com/thoas/go-funk"
)

// Any of the occurrences
func Any(in interface{}, args ...interface{}) bool {
	for _, arg := range args {
		if funk.Contains(in, arg) {
			return true
		}
	}
	return false
}

var _currentHostInfo types.Host

// GetCurrentPlatform returns the OS family of the host: "linux", "darwin"
// or "windows".
func GetCurrentPlatform() string {
	var err error
	if _currentHostInfo == nil {
		_currentHostInfo, err = sysinfo.Host()
		if err != nil {
			return runtime.GOOS
		}
	}

	switch _currentHostInfo.Info().OS.Type {
	case "macos":
		return "darwin"
	case "windows":
		return "windows"
	case "linux":
		return "linux"
	}
	return runtime.GOOS
}

// CurrentUsername returns the name of the invoking user.
func CurrentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
