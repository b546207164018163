package cibox_pm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/thoas/go-funk"

	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// DpkgLocalPackageSystem resolves and downloads .deb packages with
// apt-get, then unpacks their payload straight into the prefix without
// touching the dpkg database. The prefix never needs a working dpkg.
type DpkgLocalPackageSystem struct {
	release  string
	arch     string
	executor cibox_exec.Executor
	fetcher  cibox_lib.Fetcher

	wzlib_logger.WzLogger
}

// NewDpkgLocalPackageSystem constructor
func NewDpkgLocalPackageSystem(release string, arch string,
	executor cibox_exec.Executor, fetcher cibox_lib.Fetcher) *DpkgLocalPackageSystem {
	pm := new(DpkgLocalPackageSystem)
	pm.release = release
	pm.arch = arch
	pm.executor = executor
	pm.fetcher = fetcher
	return pm
}

func (pm *DpkgLocalPackageSystem) archivesDir() string {
	return filepath.Join(pm.executor.Root(), "var", "cache", "apt", "archives")
}

func (pm *DpkgLocalPackageSystem) aptConfPath() string {
	return filepath.Join(pm.executor.Root(), "etc", "apt.conf")
}

// initializeDirectories lays out the minimal APT state tree apt-get
// expects before it agrees to run against a foreign root.
func (pm *DpkgLocalPackageSystem) initializeDirectories() error {
	root := pm.executor.Root()
	for _, sub := range []string{
		filepath.Join("var", "cache", "apt", "archives", "partial"),
		filepath.Join("var", "lib", "apt", "lists", "partial"),
		filepath.Join("var", "lib", "dpkg", "updates"),
		filepath.Join("var", "lib", "dpkg", "info"),
		filepath.Join("var", "lib", "dpkg", "parts"),
		filepath.Join("etc", "apt", "apt.conf.d"),
		filepath.Join("etc", "apt", "preferences.d"),
		filepath.Join("etc", "apt", "sources.list.d"),
	} {
		if err := cibox_lib.SafeMakedirs(filepath.Join(root, sub)); err != nil {
			return err
		}
	}

	for _, state := range []string{"status", "available"} {
		if err := cibox_lib.SafeTouch(filepath.Join(root, "var", "lib", "dpkg", state)); err != nil {
			return err
		}
	}

	conf := strings.Join([]string{
		fmt.Sprintf("Apt {Architecture \"%s\"; Get {Assume-Yes \"true\";};};", pm.arch),
		fmt.Sprintf("Dir \"%s\";", root),
		fmt.Sprintf("Dir::State::status \"%s\";", filepath.Join(root, "var", "lib", "dpkg", "status")),
	}, "\n") + "\n"

	return os.WriteFile(pm.aptConfPath(), []byte(conf), 0644)
}

// AddRepositories merges the formatted source lines into the prefix's
// sources.list, kept as a sorted set so repeated calls stay stable.
func (pm *DpkgLocalPackageSystem) AddRepositories(repos []string) error {
	if err := pm.initializeDirectories(); err != nil {
		return err
	}

	sources := filepath.Join(pm.executor.Root(), "etc", "apt", "sources.list")
	known := []string{}
	if content, err := os.ReadFile(sources); err == nil {
		for _, line := range strings.Split(string(content), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				known = append(known, line)
			}
		}
	}

	for _, line := range FormatRepositories(repos, pm.release, pm.arch) {
		if !funk.ContainsString(known, line) {
			known = append(known, line)
		}
	}
	sort.Strings(known)

	return os.WriteFile(sources, []byte(strings.Join(known, "\n")+"\n"), 0644)
}

// InstallPackages downloads every requested package as a .deb archive
// and unpacks the payloads into the prefix. Names may be direct URLs,
// fetched as-is instead of resolved through APT.
func (pm *DpkgLocalPackageSystem) InstallPackages(names []string) error {
	if len(names) == 0 {
		return nil
	}

	if err := pm.initializeDirectories(); err != nil {
		return err
	}

	env := map[string]string{"APT_CONFIG": pm.aptConfPath()}
	pm.GetLogger().Infof("Updating repositories")
	if err := pm.executor.ExecuteSuccess([]string{"apt-get", "update", "-y", "--force-yes"},
		cibox_exec.Flags{Env: env, LiveOutput: true, Output: &cibox_lib.StdoutLogger{}}); err != nil {
		return err
	}

	if err := pm.clearArchives(); err != nil {
		return err
	}

	plain := []string{}
	for _, name := range names {
		if isURL(name) {
			pm.GetLogger().Infof("Downloading package %s", name)
			if _, err := pm.fetcher.Fetch(name, pm.archivesDir(), filepath.Base(name)); err != nil {
				return err
			}
		} else {
			plain = append(plain, name)
		}
	}

	if len(plain) > 0 {
		pm.GetLogger().Infof("Downloading APT packages: %s", strings.Join(plain, ", "))
		argv := append([]string{"apt-get", "-y", "--force-yes", "-d", "install", "--reinstall"}, plain...)
		if err := pm.executor.ExecuteSuccess(argv,
			cibox_exec.Flags{Env: env, LiveOutput: true, Output: &cibox_lib.StdoutLogger{}}); err != nil {
			return err
		}
	}

	return pm.unpackArchives()
}

// clearArchives drops stale .deb files so only this run's downloads get
// unpacked.
func (pm *DpkgLocalPackageSystem) clearArchives() error {
	archives, err := filepath.Glob(filepath.Join(pm.archivesDir(), "*.deb"))
	if err != nil {
		return err
	}
	for _, archive := range archives {
		if err := os.Remove(archive); err != nil {
			return err
		}
	}
	return nil
}

func (pm *DpkgLocalPackageSystem) unpackArchives() error {
	archives, err := filepath.Glob(filepath.Join(pm.archivesDir(), "*.deb"))
	if err != nil {
		return err
	}
	root := pm.executor.Root()
	for _, archive := range archives {
		pm.GetLogger().Debugf("Unpacking %s", filepath.Base(archive))
		if err := cibox_lib.ExtractDebData(archive, root); err != nil {
			return fmt.Errorf("Unable to unpack %s: %s", filepath.Base(archive), err.Error())
		}
	}

	if len(archives) > 0 {
		// Payload symlinks point at absolute paths, useless outside
		// root emulation.
		return NewReSymlink(root).Relink()
	}
	return nil
}
