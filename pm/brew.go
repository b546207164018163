package cibox_pm

import (
	"os"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// BrewPackageSystem drives Homebrew against a standalone prefix. No
// root emulation is involved: Homebrew already installs unprivileged.
type BrewPackageSystem struct {
	executor cibox_exec.Executor
	fetcher  cibox_lib.Fetcher

	wzlib_logger.WzLogger
}

// NewBrewPackageSystem constructor
func NewBrewPackageSystem(executor cibox_exec.Executor, fetcher cibox_lib.Fetcher) *BrewPackageSystem {
	pm := new(BrewPackageSystem)
	pm.executor = executor
	pm.fetcher = fetcher
	return pm
}

// AddRepositories taps each named repository.
func (pm *BrewPackageSystem) AddRepositories(repos []string) error {
	for _, repo := range repos {
		pm.GetLogger().Infof("Tapping %s", repo)
		if err := pm.executor.ExecuteSuccess([]string{"brew", "tap", repo},
			cibox_exec.Flags{LiveOutput: true, Output: &cibox_lib.StdoutLogger{}}); err != nil {
			return err
		}
	}
	return nil
}

// InstallPackages installs names through brew. Names that are URLs
// point at prebuilt tarballs, extracted and merged into the prefix
// instead of being resolved as formulae.
func (pm *BrewPackageSystem) InstallPackages(names []string) error {
	if len(names) == 0 {
		return nil
	}

	formulae := []string{}
	tarballs := []string{}
	for _, name := range names {
		if isURL(name) {
			tarballs = append(tarballs, name)
		} else {
			formulae = append(formulae, name)
		}
	}

	if len(formulae) > 0 {
		pm.GetLogger().Infof("Updating Homebrew")
		if err := pm.executor.ExecuteSuccess([]string{"brew", "update"},
			cibox_exec.Flags{LiveOutput: true, Output: &cibox_lib.StdoutLogger{}}); err != nil {
			return err
		}
		pm.GetLogger().Infof("Installing formulae: %s", strings.Join(formulae, ", "))
		argv := append([]string{"brew", "install"}, formulae...)
		if err := pm.executor.ExecuteSuccess(argv,
			cibox_exec.Flags{LiveOutput: true, Output: &cibox_lib.StdoutLogger{}}); err != nil {
			return err
		}
	}

	for _, tarball := range tarballs {
		if err := pm.installTarball(tarball); err != nil {
			return err
		}
	}
	return nil
}

func (pm *BrewPackageSystem) installTarball(rawurl string) error {
	pm.GetLogger().Infof("Installing tarball %s", rawurl)

	staging, err := os.MkdirTemp("", "cibox-brew")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	archive, err := pm.fetcher.Fetch(rawurl, staging, filepath.Base(rawurl))
	if err != nil {
		return err
	}

	unpacked := filepath.Join(staging, "unpacked")
	if err := cibox_lib.ExtractTar(archive, unpacked, cibox_lib.TarOptions{SkipDevices: true}); err != nil {
		return err
	}

	return cibox_lib.MergeTree(unpacked, pm.executor.Root())
}
