package cibox_cnt

import (
	"path"
	"path/filepath"

	cibox_arch "github.com/infra-whizz/cibox/arch"
	cibox_distro "github.com/infra-whizz/cibox/distro"
)

// Stamp written once the proot toolchain is fully installed. It is the
// last artifact created, so its presence implies a complete toolchain.
const ProotStampName = ".have-proot-distribution"

// ProotDirName holds the proot and qemu binaries inside a container.
const ProotDirName = "_proot"

// ProotStamp returns the toolchain stamp path for a container root.
func ProotStamp(containerDir string) string {
	return filepath.Join(containerDir, ProotStampName)
}

// ProotDir returns the toolchain directory for a container root.
func ProotDir(containerDir string) string {
	return filepath.Join(containerDir, ProotDirName)
}

// ProotBin returns the proot binary path for a container root.
func ProotBin(containerDir string) string {
	return filepath.Join(ProotDir(containerDir), "bin", "proot")
}

// QemuBin returns the user mode emulator path for an architecture.
// The architecture is normalised to qemu's own naming first.
func QemuBin(containerDir string, arch string) string {
	return filepath.Join(ProotDir(containerDir), "bin", "qemu-"+cibox_arch.Qemu(arch))
}

// DistroDir returns the rootfs directory for a resolved configuration.
// The directory is named after the tarball the rootfs came from, so two
// architectures of the same release never collide.
func DistroDir(containerDir string, cfg *cibox_distro.Config) string {
	return filepath.Join(containerDir, path.Base(cfg.FormatURL())+".root")
}

// PackagesDir returns the local-installation package prefix inside a
// rootfs directory.
func PackagesDir(distroDir string) string {
	return filepath.Join(distroDir, "packages")
}
