//go:build !linux

package cibox_arch

import (
	"runtime"

	"github.com/elastic/go-sysinfo"
)

// HostMachine returns the raw machine name of the host, e.g. "x86_64".
func HostMachine() string {
	info, err := sysinfo.Host()
	if err != nil {
		return runtime.GOARCH
	}
	return info.Info().Architecture
}
