package cibox_cnt

import (
	"os"
	"path"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/karrick/godirwalk"

	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// RootfsProvisioner downloads a distribution's root filesystem tarball
// and unpacks it into the container. Device nodes in the tarball are
// skipped: they cannot be created without real root anyway, and proot
// fakes them at runtime.
type RootfsProvisioner struct {
	containerDir string
	fetcher      cibox_lib.Fetcher

	wzlib_logger.WzLogger
}

// NewRootfsProvisioner constructor
func NewRootfsProvisioner(containerDir string, fetcher cibox_lib.Fetcher) *RootfsProvisioner {
	rp := new(RootfsProvisioner)
	rp.containerDir = containerDir
	rp.fetcher = fetcher
	return rp
}

// Exists reports whether the rootfs for cfg was already unpacked.
func (rp *RootfsProvisioner) Exists(cfg *cibox_distro.Config) bool {
	_, err := os.Stat(DistroDir(rp.containerDir, cfg))
	return err == nil
}

// Provision downloads and unpacks the rootfs for cfg, returning its
// directory. An already unpacked rootfs is reused as is.
func (rp *RootfsProvisioner) Provision(cfg *cibox_distro.Config) (string, error) {
	distroDir := DistroDir(rp.containerDir, cfg)
	if rp.Exists(cfg) {
		rp.GetLogger().Infof("Using existing rootfs for %s %s %s", cfg.Distro, cfg.Release, cfg.Arch)
		return distroDir, nil
	}

	rawurl := cfg.FormatURL()
	rp.GetLogger().Infof("Downloading rootfs from %s", rawurl)

	scratch, err := os.MkdirTemp("", "cibox-rootfs")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(scratch)

	archive, err := rp.fetcher.Fetch(rawurl, scratch, path.Base(rawurl))
	if err != nil {
		return "", err
	}

	rp.GetLogger().Infof("Extracting %s", path.Base(archive))
	if err := cibox_lib.ExtractTar(archive, distroDir,
		cibox_lib.TarOptions{SkipDevices: true}); err != nil {
		return "", err
	}

	return distroDir, rp.reclaimOwnership(distroDir)
}

// reclaimOwnership grants the owner rwx on everything unpacked, so the
// tree can later be modified or deleted without permission errors.
// Files the unprivileged owner cannot chmod are left alone.
func (rp *RootfsProvisioner) reclaimOwnership(distroDir string) error {
	return godirwalk.Walk(distroDir, &godirwalk.Options{
		Callback: func(pth string, de *godirwalk.Dirent) error {
			if de.IsSymlink() {
				return nil
			}
			nfo, err := os.Stat(pth)
			if err != nil {
				return nil
			}
			os.Chmod(pth, nfo.Mode()|0700)
			return nil
		},
		Unsorted: true,
	})
}

// removeTree drops a directory tree, tolerating absence.
func removeTree(pth string) error {
	if err := os.RemoveAll(pth); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
