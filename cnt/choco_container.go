package cibox_cnt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/karrick/godirwalk"
	"github.com/thoas/go-funk"

	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
	cibox_pm "github.com/infra-whizz/cibox/pm"
)

const chocoInstallURL = "https://chocolatey.org/install.ps1"

// ChocoContainer is a standalone Chocolatey prefix on Windows. Like the
// Homebrew one it is a plain directory put first on PATH.
type ChocoContainer struct {
	containerDir string
	executor     *cibox_exec.PrefixExecutor
	pkgsys       cibox_pm.PackageSystem

	wzlib_logger.WzLogger
}

func newChocoContainer(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*ChocoContainer, error) {
	cc := new(ChocoContainer)
	cc.containerDir = containerDir
	cc.executor = cibox_exec.NewPrefixExecutor(containerDir)

	pkgsys, err := cibox_pm.NewPackageSystem(cfg.PkgSys, cfg.Release, cfg.Arch, cc.executor, fetcher)
	if err != nil {
		return nil, err
	}
	cc.pkgsys = pkgsys
	return cc, nil
}

// CreateChocoContainer bootstraps Chocolatey into containerDir unless
// bin/choco.exe already exists there.
func CreateChocoContainer(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*ChocoContainer, error) {
	cc, err := newChocoContainer(containerDir, cfg, fetcher)
	if err != nil {
		return nil, err
	}

	choco := filepath.Join(containerDir, "bin", "choco.exe")
	if _, err := os.Stat(choco); err == nil {
		cc.GetLogger().Infof("Using existing Chocolatey prefix in %s", containerDir)
		return cc, nil
	}

	if err := cc.bootstrap(); err != nil {
		return nil, fmt.Errorf("Unable to bootstrap Chocolatey: %s", err.Error())
	}
	return cc, nil
}

// ChocoContainerFor returns the existing Chocolatey prefix, creating
// nothing.
func ChocoContainerFor(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*ChocoContainer, error) {
	if err := requireArtifacts(filepath.Join(containerDir, "bin", "choco.exe")); err != nil {
		return nil, err
	}
	return newChocoContainer(containerDir, cfg, fetcher)
}

// bootstrap runs the official install script with ChocolateyInstall
// redirected into the prefix, so nothing lands in the host-global
// location.
func (cc *ChocoContainer) bootstrap() error {
	cc.GetLogger().Infof("Installing Chocolatey into %s", cc.containerDir)
	if err := cibox_lib.SafeMakedirs(cc.containerDir); err != nil {
		return err
	}

	env := map[string]string{"ChocolateyInstall": cc.containerDir}
	installCmd := fmt.Sprintf("iex ((new-object net.webclient).DownloadString('%s'))", chocoInstallURL)
	return cc.executor.ExecuteSuccess([]string{
		"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", installCmd,
	}, cibox_exec.Flags{Env: env})
}

func (cc *ChocoContainer) Executor() cibox_exec.Executor {
	return cc.executor
}

func (cc *ChocoContainer) PackageSystem() cibox_pm.PackageSystem {
	return cc.pkgsys
}

func (cc *ChocoContainer) Root() string {
	return cc.containerDir
}

// Clean drops Chocolatey logs and bundled documentation from installed
// packages.
func (cc *ChocoContainer) Clean() error {
	if err := removeTree(filepath.Join(cc.containerDir, "logs")); err != nil {
		return err
	}

	libDir := filepath.Join(cc.containerDir, "lib")
	if _, err := os.Stat(libDir); err != nil {
		return nil
	}

	junkDirs := []string{"doc", "man", "html"}
	return godirwalk.Walk(libDir, &godirwalk.Options{
		Callback: func(pth string, de *godirwalk.Dirent) error {
			if de.IsDir() && funk.ContainsString(junkDirs, filepath.Base(pth)) {
				if err := removeTree(pth); err != nil {
					return err
				}
				return filepath.SkipDir
			}
			if !de.IsDir() && strings.HasSuffix(pth, ".old") {
				return os.Remove(pth)
			}
			return nil
		},
		Unsorted: true,
	})
}
