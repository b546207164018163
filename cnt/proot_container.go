package cibox_cnt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
	cibox_pm "github.com/infra-whizz/cibox/pm"
)

// ProotContainer is a Linux distribution rootfs entered through proot,
// with qemu interposed when the architecture differs from the host's.
type ProotContainer struct {
	containerDir string
	distroDir    string
	cfg          *cibox_distro.Config
	executor     *cibox_exec.ProotExecutor
	pkgsys       cibox_pm.PackageSystem

	wzlib_logger.WzLogger
}

func newProotContainer(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*ProotContainer, error) {
	pc := new(ProotContainer)
	pc.containerDir = containerDir
	pc.distroDir = DistroDir(containerDir, cfg)
	pc.cfg = cfg
	pc.executor = cibox_exec.NewProotExecutor(ProotBin(containerDir),
		QemuBin(containerDir, cfg.Arch), pc.distroDir, cfg.Arch)

	pkgsys, err := cibox_pm.NewPackageSystem(cfg.PkgSys, cfg.Release, cfg.Arch, pc.executor, fetcher)
	if err != nil {
		return nil, err
	}
	pc.pkgsys = pkgsys
	return pc, nil
}

// CreateProotContainer realises a proot container: toolchain first,
// then the rootfs, then one-time minimisation of a fresh rootfs.
// Every step is keyed on filesystem existence, so repeated calls with
// the same configuration converge without re-downloading.
func CreateProotContainer(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*ProotContainer, error) {
	if err := NewToolchainProvisioner(containerDir, cfg.Arch, fetcher).Provision(); err != nil {
		return nil, fmt.Errorf("Unable to provision the proot toolchain: %s", err.Error())
	}

	rootfs := NewRootfsProvisioner(containerDir, fetcher)
	fresh := !rootfs.Exists(cfg)
	if _, err := rootfs.Provision(cfg); err != nil {
		return nil, fmt.Errorf("Unable to provision the rootfs: %s", err.Error())
	}

	pc, err := newProotContainer(containerDir, cfg, fetcher)
	if err != nil {
		return nil, err
	}

	if fresh && cfg.Distro == "Ubuntu" {
		if err := NewMinimizer(pc.executor, pc.distroDir, cfg.Release).Minimize(); err != nil {
			return nil, fmt.Errorf("Unable to minimise the rootfs: %s", err.Error())
		}
	}

	return pc, nil
}

// ProotContainerFor returns the existing container for cfg. It never
// creates anything: a missing toolchain stamp or rootfs is an error.
func ProotContainerFor(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*ProotContainer, error) {
	if err := requireArtifacts(ProotStamp(containerDir), DistroDir(containerDir, cfg)); err != nil {
		return nil, err
	}
	return newProotContainer(containerDir, cfg, fetcher)
}

func (pc *ProotContainer) Executor() cibox_exec.Executor {
	return pc.executor
}

func (pc *ProotContainer) PackageSystem() cibox_pm.PackageSystem {
	return pc.pkgsys
}

func (pc *ProotContainer) Root() string {
	return pc.distroDir
}

// Clean drops caches, documentation and locale data from the rootfs.
// Removal runs as the in-container root: the unpacked tree contains
// files the host user cannot unlink directly.
func (pc *ProotContainer) Clean() error {
	guestDirs := []string{
		"/tmp",
		"/var/cache/apt",
		"/var/run",
		"/usr/share/doc",
		"/usr/share/locale",
		"/usr/share/man",
		"/var/lib/apt/lists",
		"/dev",
	}
	if err := pc.removeInContainer(guestDirs); err != nil {
		return err
	}

	user, err := cibox_lib.CurrentUsername()
	if err != nil {
		return err
	}
	if err := pc.executor.ExecuteSuccess([]string{"chown", "-R", user + ":users", "/"},
		cibox_exec.Flags{MinimalBind: true}); err != nil {
		return err
	}

	// Whatever proot recreated under /dev meanwhile goes too.
	if err := removeTree(filepath.Join(pc.distroDir, "dev")); err != nil {
		return err
	}

	return cibox_lib.SafeMakedirs(filepath.Join(pc.distroDir,
		"var", "cache", "apt", "archives", "partial"))
}

// removeInContainer runs rm -rf for each guest path through a script
// placed inside the rootfs itself: under minimal bind the container
// cannot see host temp directories.
func (pc *ProotContainer) removeInContainer(guestDirs []string) error {
	script, err := os.CreateTemp(pc.distroDir, "cleanup-*.sh")
	if err != nil {
		return err
	}
	defer os.Remove(script.Name())

	lines := make([]string, 0, len(guestDirs))
	for _, dir := range guestDirs {
		lines = append(lines, "rm -rf "+dir)
	}
	if _, err := script.WriteString(strings.Join(lines, ";\n") + "\n"); err != nil {
		script.Close()
		return err
	}
	script.Close()

	return pc.executor.ExecuteSuccess([]string{"bash", "/" + filepath.Base(script.Name())},
		cibox_exec.Flags{MinimalBind: true})
}
