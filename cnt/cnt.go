package cibox_cnt

import (
	"fmt"

	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// Create realises the container for a resolved configuration, fetching
// whatever artifacts are missing. Safe to call repeatedly: each step is
// keyed on on-disk existence.
func Create(containerDir string, cfg *cibox_distro.Config, fetcher cibox_lib.Fetcher) (Container, error) {
	switch cfg.Installation {
	case cibox_distro.InstallationProot:
		return CreateProotContainer(containerDir, cfg, fetcher)
	case cibox_distro.InstallationLocal:
		return CreateLocalContainer(containerDir, cfg, fetcher)
	case cibox_distro.InstallationNative:
		return createNative(containerDir, cfg, fetcher)
	}
	return nil, fmt.Errorf("Unknown installation mode: %s", cfg.Installation)
}

// ContainerFor returns the already realised container for cfg. Unlike
// Create it downloads and writes nothing: a partially or never created
// container yields a RequiredArtifactError before any process spawns.
func ContainerFor(containerDir string, cfg *cibox_distro.Config, fetcher cibox_lib.Fetcher) (Container, error) {
	switch cfg.Installation {
	case cibox_distro.InstallationProot:
		return ProotContainerFor(containerDir, cfg, fetcher)
	case cibox_distro.InstallationLocal:
		return LocalContainerFor(containerDir, cfg, fetcher)
	case cibox_distro.InstallationNative:
		return nativeFor(containerDir, cfg, fetcher)
	}
	return nil, fmt.Errorf("Unknown installation mode: %s", cfg.Installation)
}

func createNative(containerDir string, cfg *cibox_distro.Config, fetcher cibox_lib.Fetcher) (Container, error) {
	switch cfg.PkgSys {
	case cibox_distro.PkgBrew:
		return CreateBrewContainer(containerDir, cfg, fetcher)
	case cibox_distro.PkgChoco:
		return CreateChocoContainer(containerDir, cfg, fetcher)
	}
	return nil, fmt.Errorf("No native prefix for package system %s", cfg.PkgSys)
}

func nativeFor(containerDir string, cfg *cibox_distro.Config, fetcher cibox_lib.Fetcher) (Container, error) {
	switch cfg.PkgSys {
	case cibox_distro.PkgBrew:
		return BrewContainerFor(containerDir, cfg, fetcher)
	case cibox_distro.PkgChoco:
		return ChocoContainerFor(containerDir, cfg, fetcher)
	}
	return nil, fmt.Errorf("No native prefix for package system %s", cfg.PkgSys)
}
