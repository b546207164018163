package cibox_pm

import (
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// ChocoPackageSystem drives Chocolatey on Windows hosts. Packages land
// in the prefix via the executor's environment, there is no separate
// repository mechanism.
type ChocoPackageSystem struct {
	executor cibox_exec.Executor

	wzlib_logger.WzLogger
}

// NewChocoPackageSystem constructor
func NewChocoPackageSystem(executor cibox_exec.Executor) *ChocoPackageSystem {
	pm := new(ChocoPackageSystem)
	pm.executor = executor
	return pm
}

// AddRepositories is accepted but does nothing: Chocolatey sources are
// host-global and not managed per prefix.
func (pm *ChocoPackageSystem) AddRepositories(repos []string) error {
	if len(repos) > 0 {
		pm.GetLogger().Warnf("Ignoring %d repositories: Chocolatey sources are host-global", len(repos))
	}
	return nil
}

// InstallPackages installs names with choco.
func (pm *ChocoPackageSystem) InstallPackages(names []string) error {
	if len(names) == 0 {
		return nil
	}

	pm.GetLogger().Infof("Installing Chocolatey packages: %s", strings.Join(names, ", "))
	argv := append([]string{"choco", "install", "-fy", "-m"}, names...)
	return pm.executor.ExecuteSuccess(argv, cibox_exec.Flags{LiveOutput: true, Output: &cibox_lib.StdoutLogger{}})
}
