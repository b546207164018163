package cibox_pm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/thoas/go-funk"

	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

const (
	ubuntuMainArchive = "http://archive.ubuntu.com/ubuntu/"
	ubuntuPortArchive = "http://ports.ubuntu.com/ubuntu-ports/"
	debianArchive     = "http://ftp.debian.org/"
	launchpadArchive  = "http://ppa.launchpad.net/"
)

// Port architectures are served from a secondary mirror network.
var ubuntuMainArchs = []string{"i386", "amd64"}
var ubuntuPortArchs = []string{"armhf", "arm64", "powerpc", "ppc64el"}

// DpkgPackageSystem drives apt/dpkg inside a root-emulated container.
type DpkgPackageSystem struct {
	release  string
	arch     string
	executor cibox_exec.Executor

	wzlib_logger.WzLogger
}

// NewDpkgPackageSystem constructor
func NewDpkgPackageSystem(release string, arch string, executor cibox_exec.Executor) *DpkgPackageSystem {
	pm := new(DpkgPackageSystem)
	pm.release = release
	pm.arch = arch
	pm.executor = executor
	return pm
}

// FormatRepositories expands the repository line placeholders and turns
// each line into a full "deb ..." APT source. {ubuntu} picks the main or
// the ports archive depending on the target architecture.
func FormatRepositories(repos []string, release string, arch string) []string {
	ubuntu := ubuntuMainArchive
	if funk.ContainsString(ubuntuPortArchs, arch) {
		ubuntu = ubuntuPortArchive
	}

	replacer := strings.NewReplacer(
		"{ubuntu}", ubuntu,
		"{debian}", debianArchive,
		"{launchpad}", launchpadArchive,
		"{release}", release,
	)

	lines := make([]string, 0, len(repos))
	for _, repo := range repos {
		lines = append(lines, "deb "+replacer.Replace(repo))
	}
	return lines
}

// AddRepositories appends the formatted source lines through a generated
// shell script executed with full access: arbitrary host processes may
// lack write permission to the guest's /etc without root emulation.
func (pm *DpkgPackageSystem) AddRepositories(repos []string) error {
	var script strings.Builder
	for count, line := range FormatRepositories(repos, pm.release, pm.arch) {
		script.WriteString(fmt.Sprintf("echo \"%s\" > /etc/apt/sources.list.d/%d.list\n", line, count))
	}

	return runGuestScript(pm.executor, script.String())
}

// InstallPackages refreshes the package index and installs names.
func (pm *DpkgPackageSystem) InstallPackages(names []string) error {
	if len(names) == 0 {
		return nil
	}

	pm.GetLogger().Infof("Updating repositories")
	if err := pm.executor.ExecuteSuccess([]string{"apt-get", "update", "-y", "--force-yes"},
		cibox_exec.Flags{LiveOutput: true, Output: &cibox_lib.StdoutLogger{}}); err != nil {
		return err
	}

	pm.GetLogger().Infof("Installing APT packages: %s", strings.Join(names, ", "))
	argv := append([]string{"apt-get", "install", "-y", "--force-yes"}, names...)
	return pm.executor.ExecuteSuccess(argv, cibox_exec.Flags{LiveOutput: true, Output: &cibox_lib.StdoutLogger{}})
}

// runGuestScript materialises a bash script on the host tmp, which proot
// binds into the guest, and runs it under root emulation.
func runGuestScript(executor cibox_exec.Executor, content string) error {
	script, err := os.CreateTemp("", "cibox-script")
	if err != nil {
		return err
	}
	defer os.Remove(script.Name())

	if _, err := script.WriteString(content); err != nil {
		script.Close()
		return err
	}
	script.Close()

	return executor.ExecuteSuccess([]string{"bash", filepath.ToSlash(script.Name())},
		cibox_exec.Flags{RequiresFullAccess: true})
}
