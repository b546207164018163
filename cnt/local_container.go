package cibox_cnt

import (
	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
	cibox_pm "github.com/infra-whizz/cibox/pm"
)

// LocalContainer keeps a proot-realised rootfs around but runs commands
// on the host directly, pointing the toolchain environment at a package
// prefix inside the rootfs. Installation still happens under proot when
// it needs root emulation, execution does not pay the ptrace tax.
type LocalContainer struct {
	inner    *ProotContainer
	executor *cibox_exec.LocalExecutor
	pkgsys   cibox_pm.PackageSystem
}

func newLocalContainer(inner *ProotContainer, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*LocalContainer, error) {
	lc := new(LocalContainer)
	lc.inner = inner
	lc.executor = cibox_exec.NewLocalExecutor(PackagesDir(inner.Root()), inner.executor)

	pkgsys, err := cibox_pm.NewPackageSystem(cfg.PkgSys, cfg.Release, cfg.Arch, lc.executor, fetcher)
	if err != nil {
		return nil, err
	}
	lc.pkgsys = pkgsys
	return lc, nil
}

// CreateLocalContainer realises the underlying proot container and
// wraps it for local-prefix execution.
func CreateLocalContainer(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*LocalContainer, error) {
	inner, err := CreateProotContainer(containerDir, cfg, fetcher)
	if err != nil {
		return nil, err
	}
	return newLocalContainer(inner, cfg, fetcher)
}

// LocalContainerFor returns the existing local container for cfg,
// creating nothing.
func LocalContainerFor(containerDir string, cfg *cibox_distro.Config,
	fetcher cibox_lib.Fetcher) (*LocalContainer, error) {
	inner, err := ProotContainerFor(containerDir, cfg, fetcher)
	if err != nil {
		return nil, err
	}
	return newLocalContainer(inner, cfg, fetcher)
}

func (lc *LocalContainer) Executor() cibox_exec.Executor {
	return lc.executor
}

func (lc *LocalContainer) PackageSystem() cibox_pm.PackageSystem {
	return lc.pkgsys
}

// Root is the package prefix, not the rootfs: local execution resolves
// everything relative to it.
func (lc *LocalContainer) Root() string {
	return lc.executor.Root()
}

func (lc *LocalContainer) Clean() error {
	return lc.inner.Clean()
}
