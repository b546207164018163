package cibox_cnt

import (
	"fmt"
	"os"
	"path/filepath"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
	cibox_pm "github.com/infra-whizz/cibox/pm"
)

const homebrewURL = "https://github.com/Homebrew/brew/tarball/master"

// BrewContainer is a standalone Homebrew prefix on macOS. There is no
// isolation layer: commands run on the host with the prefix put first
// on the toolchain paths.
type BrewContainer struct {
	containerDir string
	executor     *cibox_exec.PrefixExecutor
	pkgsys       cibox_pm.PackageSystem

	wzlib_logger.WzLogger
}

func newBrewContainer(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*BrewContainer, error) {
	bc := new(BrewContainer)
	bc.containerDir = containerDir
	bc.executor = cibox_exec.NewPrefixExecutor(containerDir)

	pkgsys, err := cibox_pm.NewPackageSystem(cfg.PkgSys, cfg.Release, cfg.Arch, bc.executor, fetcher)
	if err != nil {
		return nil, err
	}
	bc.pkgsys = pkgsys
	return bc, nil
}

// CreateBrewContainer bootstraps Homebrew into containerDir unless
// bin/brew already exists there.
func CreateBrewContainer(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*BrewContainer, error) {
	bc, err := newBrewContainer(containerDir, cfg, fetcher)
	if err != nil {
		return nil, err
	}

	brew := filepath.Join(containerDir, "bin", "brew")
	if _, err := os.Stat(brew); err == nil {
		bc.GetLogger().Infof("Using existing Homebrew prefix in %s", containerDir)
		return bc, nil
	}

	if err := bc.bootstrap(fetcher); err != nil {
		return nil, fmt.Errorf("Unable to bootstrap Homebrew: %s", err.Error())
	}
	return bc, nil
}

// BrewContainerFor returns the existing Homebrew prefix, creating
// nothing. Bin/brew is the artifact whose absence means "not created".
func BrewContainerFor(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*BrewContainer, error) {
	if err := requireArtifacts(filepath.Join(containerDir, "bin", "brew")); err != nil {
		return nil, err
	}
	return newBrewContainer(containerDir, cfg, fetcher)
}

// bootstrap unpacks the Homebrew release tarball and merges the single
// top level directory it contains into the prefix.
func (bc *BrewContainer) bootstrap(fetcher cibox_lib.Fetcher) error {
	bc.GetLogger().Infof("Downloading Homebrew from %s", homebrewURL)

	scratch, err := os.MkdirTemp("", "cibox-brew")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	archive, err := fetcher.Fetch(homebrewURL, scratch, "homebrew.tar.gz")
	if err != nil {
		return err
	}

	unpacked := filepath.Join(scratch, "unpacked")
	if err := cibox_lib.ExtractTar(archive, unpacked, cibox_lib.TarOptions{SkipDevices: true}); err != nil {
		return err
	}

	entries, err := os.ReadDir(unpacked)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return fmt.Errorf("Unexpected Homebrew tarball layout in %s", archive)
	}

	if err := cibox_lib.SafeMakedirs(bc.containerDir); err != nil {
		return err
	}
	return cibox_lib.MergeTree(filepath.Join(unpacked, entries[0].Name()), bc.containerDir)
}

func (bc *BrewContainer) Executor() cibox_exec.Executor {
	return bc.executor
}

func (bc *BrewContainer) PackageSystem() cibox_pm.PackageSystem {
	return bc.pkgsys
}

func (bc *BrewContainer) Root() string {
	return bc.containerDir
}

// Clean is a no-op: a Homebrew prefix has no cache worth pruning that
// brew does not manage itself.
func (bc *BrewContainer) Clean() error {
	return nil
}
