package cibox_cnt

import (
	"os"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/thoas/go-funk"

	cibox_exec "github.com/infra-whizz/cibox/executor"
)

// Package sets an Ubuntu rootfs cannot function without. Everything
// else gets purged right after the first unpack to keep the cached
// container small.
var ubuntuKeepPackages = map[string][]string{
	"precise": {
		"apt", "base-files", "base-passwd", "bash", "bsdutils", "coreutils",
		"dash", "debconf", "debianutils", "diffutils", "dpkg", "findutils",
		"gcc-4.6-base", "gnupg", "gpgv", "grep", "gzip", "libacl1",
		"libapt-pkg4.12", "libattr1", "libbz2-1.0", "libc-bin", "libc6",
		"libdb5.1", "libffi6", "libgcc1", "liblzma5", "libpam-modules",
		"libpam-modules-bin", "libpam-runtime", "libpam0g", "libreadline6",
		"libselinux1", "libstdc++6", "libtinfo5", "libusb-0.1-4", "makedev",
		"mawk", "multiarch-support", "perl-base", "readline-common", "sed",
		"sensible-utils", "tar", "tzdata", "ubuntu-keyring", "xz-utils",
		"zlib1g",
	},
	"trusty": {
		"apt", "base-files", "base-passwd", "bash", "bsdutils", "coreutils",
		"dash", "debconf", "debianutils", "diffutils", "dh-python", "dpkg",
		"findutils", "gcc-4.8-base", "gcc-4.9-base", "gnupg", "gpgv", "grep",
		"gzip", "libacl1", "libapt-pkg4.12", "libaudit1", "libaudit-common",
		"libattr1", "libbz2-1.0", "libc-bin", "libc6", "libcap2", "libdb5.3",
		"libdebconfclient0", "libexpat1", "libmpdec2", "libffi6", "libgcc1",
		"liblzma5", "libncursesw5", "libpcre3", "libpam-modules",
		"libpam-modules-bin", "libpam-runtime", "libpam0g",
		"libpython3-stdlib", "libpython3.4-stdlib", "libpython3",
		"libpython3-minimal", "libpython3.4", "libpython3.4-minimal",
		"libreadline6", "libselinux1", "libssl1.0.0", "libstdc++6",
		"libsqlite3-0", "libtinfo5", "libusb-0.1-4", "lsb-release", "makedev",
		"mawk", "mime-support", "multiarch-support", "perl-base", "python3",
		"python3-minimal", "python3.4", "python3.4-minimal",
		"readline-common", "sed", "sensible-utils", "tar", "tzdata",
		"ubuntu-keyring", "xz-utils", "zlib1g",
	},
}

// Minimizer strips a freshly unpacked Ubuntu rootfs down to the keep
// set for the release. Releases without a keep set pass through
// untouched. Runs only on first creation, never on reuse: purging a
// container the user already installed things into would destroy them.
type Minimizer struct {
	executor  cibox_exec.Executor
	distroDir string
	release   string

	wzlib_logger.WzLogger
}

// NewMinimizer constructor
func NewMinimizer(executor cibox_exec.Executor, distroDir string, release string) *Minimizer {
	mz := new(Minimizer)
	mz.executor = executor
	mz.distroDir = distroDir
	mz.release = release
	return mz
}

// Minimize purges every installed package outside the keep set and pins
// APT to skip recommended and suggested packages from now on.
func (mz *Minimizer) Minimize() error {
	keep, ok := ubuntuKeepPackages[mz.release]
	if !ok {
		mz.GetLogger().Debugf("No minimisation profile for release %s", mz.release)
		return nil
	}

	env := map[string]string{
		"SUDO_FORCE_REMOVE": "yes",
		"DEBIAN_FRONTEND":   "noninteractive",
	}

	_, stdout, _, err := mz.executor.Execute([]string{"dpkg-query", "-Wf", "${Package}\n"},
		cibox_exec.Flags{Env: env})
	if err != nil {
		return err
	}

	remove := []string{}
	for _, name := range strings.Split(stdout, "\n") {
		if name = strings.TrimSpace(name); name != "" && !funk.ContainsString(keep, name) {
			remove = append(remove, name)
		}
	}

	if len(remove) > 0 {
		mz.GetLogger().Infof("Purging %d packages from the rootfs", len(remove))
		argv := append([]string{"dpkg", "--purge", "--force-all"}, remove...)
		if err := mz.executor.ExecuteSuccess(argv,
			cibox_exec.Flags{MinimalBind: true, Env: env}); err != nil {
			return err
		}
	}

	return mz.pinAptFootprint()
}

func (mz *Minimizer) pinAptFootprint() error {
	conf := filepath.Join(mz.distroDir, "etc", "apt", "apt.conf.d", "99container")
	content := strings.Join([]string{
		"APT::Install-Recommends \"0\";",
		"APT::Install-Suggests \"0\";",
	}, "\n") + "\n"

	if err := os.MkdirAll(filepath.Dir(conf), 0755); err != nil {
		return err
	}
	return os.WriteFile(conf, []byte(content), 0644)
}
