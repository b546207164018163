package cibox_cnt

import (
	"fmt"
	"os"
	"path/filepath"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/isbm/go-shutil"
	"github.com/thoas/go-funk"

	cibox_arch "github.com/infra-whizz/cibox/arch"
	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

const prootURLPattern = "http://static.proot.me/proot-%s"
const qemuURLPattern = "http://download.opensuse.org/repositories" +
	"/home:/cedric-vincent/xUbuntu_12.04/%s/qemu-user-mode_1.6.1-1_%s.deb"

// ForceQemuEnv forces the emulator download even when the target
// architecture equals the host's.
const ForceQemuEnv = "CIBOX_FORCE_QEMU"

// ToolchainProvisioner installs the proot binary and, when the target
// architecture differs from the host, the qemu user mode emulators into
// a container's toolchain directory. Provisioning is idempotent: once
// the stamp exists, Provision returns immediately.
type ToolchainProvisioner struct {
	containerDir string
	targetArch   string
	hostMachine  string
	forceQemu    bool
	fetcher      cibox_lib.Fetcher
	registry     []*cibox_distro.Descriptor

	wzlib_logger.WzLogger
}

// NewToolchainProvisioner constructor
func NewToolchainProvisioner(containerDir string, targetArch string, fetcher cibox_lib.Fetcher) *ToolchainProvisioner {
	tp := new(ToolchainProvisioner)
	tp.containerDir = containerDir
	tp.targetArch = targetArch
	tp.fetcher = fetcher
	tp.hostMachine = cibox_arch.HostMachine()
	tp.registry = cibox_distro.Registry()
	tp.forceQemu = os.Getenv(ForceQemuEnv) != ""
	return tp
}

// SetHostMachine overrides the detected host machine name.
func (tp *ToolchainProvisioner) SetHostMachine(machine string) *ToolchainProvisioner {
	tp.hostMachine = machine
	return tp
}

// SetRegistry overrides the distribution registry used to decide which
// emulators are worth keeping.
func (tp *ToolchainProvisioner) SetRegistry(registry []*cibox_distro.Descriptor) *ToolchainProvisioner {
	tp.registry = registry
	return tp
}

// SetForceQemu downloads the emulators regardless of the target
// architecture.
func (tp *ToolchainProvisioner) SetForceQemu(force bool) *ToolchainProvisioner {
	tp.forceQemu = force
	return tp
}

// Provision fetches proot and qemu unless the stamp says they are
// already in place. The stamp is written strictly last, so a crashed
// run reprovisions from scratch on the next call.
func (tp *ToolchainProvisioner) Provision() error {
	stamp := ProotStamp(tp.containerDir)
	if _, err := os.Stat(stamp); err == nil {
		tp.GetLogger().Debug("Using pre-existing proot toolchain")
		return nil
	}

	tp.GetLogger().Infof("Creating proot toolchain in %s", tp.containerDir)
	binDir := filepath.Join(ProotDir(tp.containerDir), "bin")
	if err := cibox_lib.SafeMakedirs(binDir); err != nil {
		return err
	}

	if err := tp.downloadProot(binDir); err != nil {
		return err
	}

	if tp.emulationNeeded() {
		if err := tp.downloadQemu(binDir); err != nil {
			return err
		}
	}

	return os.WriteFile(stamp, []byte("done"), 0644)
}

func (tp *ToolchainProvisioner) emulationNeeded() bool {
	return tp.forceQemu ||
		cibox_arch.Universal(tp.hostMachine) != cibox_arch.Universal(tp.targetArch)
}

func (tp *ToolchainProvisioner) downloadProot(binDir string) error {
	prootURL := fmt.Sprintf(prootURLPattern, cibox_arch.Universal(tp.hostMachine))
	tp.GetLogger().Infof("Downloading proot from %s", prootURL)

	proot, err := tp.fetcher.Fetch(prootURL, binDir, "proot")
	if err != nil {
		return err
	}
	return markExecutable(proot)
}

// downloadQemu extracts the emulator package into a scratch directory
// and copies over only the emulators some registered distribution can
// actually target. The host's own architecture never needs emulation.
func (tp *ToolchainProvisioner) downloadQemu(binDir string) error {
	qemuArch := cibox_arch.Debian(tp.hostMachine)
	qemuURL := fmt.Sprintf(qemuURLPattern, qemuArch, qemuArch)
	tp.GetLogger().Infof("Downloading qemu from %s", qemuURL)

	scratch, err := os.MkdirTemp("", "cibox-qemu")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	qemuDeb, err := tp.fetcher.Fetch(qemuURL, scratch, "qemu.deb")
	if err != nil {
		return err
	}
	if err := cibox_lib.ExtractDebData(qemuDeb, scratch); err != nil {
		return err
	}

	keep := tp.neededEmulators()
	unpacked := filepath.Join(scratch, "usr", "bin")
	entries, err := os.ReadDir(unpacked)
	if err != nil {
		return fmt.Errorf("Emulator package had no usr/bin: %s", err.Error())
	}

	for _, entry := range entries {
		if !funk.ContainsString(keep, entry.Name()) {
			continue
		}
		target := filepath.Join(binDir, entry.Name())
		if err := shutil.CopyFile(filepath.Join(unpacked, entry.Name()), target, false); err != nil {
			return err
		}
		if err := markExecutable(target); err != nil {
			return err
		}
	}
	return nil
}

// neededEmulators lists emulator binary names for every architecture a
// registered distribution can run as, minus the host's own.
func (tp *ToolchainProvisioner) neededEmulators() []string {
	hostAlias := cibox_arch.Universal(tp.hostMachine)
	names := []string{}
	for _, descriptor := range tp.registry {
		for _, arch := range descriptor.Archs {
			if cibox_arch.Universal(arch) == hostAlias {
				continue
			}
			name := "qemu-" + cibox_arch.Qemu(arch)
			if !funk.ContainsString(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

func markExecutable(pth string) error {
	nfo, err := os.Stat(pth)
	if err != nil {
		return err
	}
	return os.Chmod(pth, nfo.Mode()|0111)
}
