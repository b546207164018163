package cibox_pm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// YumPackageSystem drives yum inside a root-emulated container.
// Repository entries are URLs of .repo files rather than source lines.
type YumPackageSystem struct {
	executor cibox_exec.Executor
	fetcher  cibox_lib.Fetcher

	wzlib_logger.WzLogger
}

// NewYumPackageSystem constructor
func NewYumPackageSystem(executor cibox_exec.Executor, fetcher cibox_lib.Fetcher) *YumPackageSystem {
	pm := new(YumPackageSystem)
	pm.executor = executor
	pm.fetcher = fetcher
	return pm
}

// AddRepositories downloads each .repo file and installs it into the
// guest's /etc/yum/repos.d through a full access script, since the
// host user has no write permission inside the guest tree.
func (pm *YumPackageSystem) AddRepositories(repos []string) error {
	if len(repos) == 0 {
		return nil
	}

	staging, err := os.MkdirTemp("", "cibox-repos")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	var script strings.Builder
	script.WriteString("set -e\nmkdir -p /etc/yum/repos.d\n")
	for _, repo := range repos {
		pm.GetLogger().Infof("Fetching repository %s", repo)
		fetched, err := pm.fetcher.Fetch(repo, staging, filepath.Base(repo))
		if err != nil {
			return fmt.Errorf("Unable to fetch repository %s: %s", repo, err.Error())
		}
		script.WriteString(fmt.Sprintf("cp \"%s\" /etc/yum/repos.d/\n", fetched))
	}

	return runGuestScript(pm.executor, script.String())
}

// InstallPackages installs names with yum.
func (pm *YumPackageSystem) InstallPackages(names []string) error {
	if len(names) == 0 {
		return nil
	}

	pm.GetLogger().Infof("Installing Yum packages: %s", strings.Join(names, ", "))
	argv := append([]string{"yum", "install", "-y"}, names...)
	return pm.executor.ExecuteSuccess(argv, cibox_exec.Flags{LiveOutput: true, Output: &cibox_lib.StdoutLogger{}})
}
