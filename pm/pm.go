package cibox_pm

import (
	"fmt"

	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// PackageSystem drives one native package manager through a bound
// container executor.
type PackageSystem interface {
	// AddRepositories registers extra package sources. Lines may use
	// the {ubuntu}/{debian}/{launchpad}/{release} placeholders where
	// the package system understands them.
	AddRepositories(repos []string) error

	// InstallPackages installs the named packages. An empty list is a
	// strict no-op: no update, no subprocess at all.
	InstallPackages(names []string) error
}

// NewPackageSystem binds the strategy for kind to an executor. The
// fetcher is used by strategies that download artifacts themselves.
func NewPackageSystem(kind cibox_distro.PkgSysKind, release string, arch string,
	executor cibox_exec.Executor, fetcher cibox_lib.Fetcher) (PackageSystem, error) {
	switch kind {
	case cibox_distro.PkgDpkg:
		return NewDpkgPackageSystem(release, arch, executor), nil
	case cibox_distro.PkgDpkgLocal:
		return NewDpkgLocalPackageSystem(release, arch, executor, fetcher), nil
	case cibox_distro.PkgYum:
		return NewYumPackageSystem(executor, fetcher), nil
	case cibox_distro.PkgBrew:
		return NewBrewPackageSystem(executor, fetcher), nil
	case cibox_distro.PkgChoco:
		return NewChocoPackageSystem(executor), nil
	}
	return nil, fmt.Errorf("Unknown package system: %s", kind)
}

// isURL tells package names apart from direct download locations.
func isURL(name string) bool {
	return len(name) > 8 && (name[:7] == "http://" || name[:8] == "https://" || name[:6] == "ftp://")
}
