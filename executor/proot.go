package cibox_exec

import (
	"os"
	"path/filepath"
	"strings"

	cibox_arch "github.com/infra-whizz/cibox/arch"
)

// ProotExecutor runs commands under ptrace based root emulation. Commands
// see the distribution root as their own filesystem and believe they run
// as uid 0, no elevated privileges involved.
type ProotExecutor struct {
	prootBin   string
	qemuBin    string
	distroDir  string
	targetArch string
	hostArch   string

	BaseExecutor
}

// NewProotExecutor constructor. qemuBin may be empty when the target
// architecture equals the host's.
func NewProotExecutor(prootBin string, qemuBin string, distroDir string, targetArch string) *ProotExecutor {
	pe := new(ProotExecutor)
	pe.prootBin = prootBin
	pe.qemuBin = qemuBin
	pe.distroDir = distroDir
	pe.targetArch = cibox_arch.Universal(targetArch)
	pe.hostArch = cibox_arch.Universal(cibox_arch.HostMachine())
	pe.ref = pe
	return pe
}

// SetHostArch overrides host architecture detection
func (pe *ProotExecutor) SetHostArch(machine string) *ProotExecutor {
	pe.hostArch = cibox_arch.Universal(machine)
	return pe
}

// Root of the emulated filesystem
func (pe *ProotExecutor) Root() string {
	return pe.distroDir
}

// BuildInvocation prepends the proot entry command and computes the
// environment overlay from the guest's own /etc/environment.
func (pe *ProotExecutor) BuildInvocation(argv []string, flags Flags) (*Invocation, error) {
	var prootCmd []string
	if flags.MinimalBind {
		// Root emulation without host directory binds, so dpkg and
		// friends can remove files without reaching host paths.
		prootCmd = []string{pe.prootBin, "-r", pe.distroDir, "-0"}
	} else {
		prootCmd = []string{pe.prootBin, "-S", pe.distroDir}
	}

	if pe.targetArch != pe.hostArch && pe.qemuBin != "" {
		prootCmd = append(prootCmd, "-q", pe.qemuBin)
	}

	prepend, override := pe.guestEnvironment()

	// Package manager output has to be locale independent
	override["LANG"] = "C"
	override["LC_ALL"] = "C"

	return &Invocation{
		Argv:     append(prootCmd, argv...),
		Prepend:  prepend,
		Override: override,
	}, nil
}

// guestEnvironment classifies the guest's /etc/environment entries:
// PATH-like keys are prepended so guest binaries win over host ones,
// everything else is overridden outright.
func (pe *ProotExecutor) guestEnvironment() (map[string]string, map[string]string) {
	prepend := map[string]string{}
	override := map[string]string{}

	data, err := os.ReadFile(filepath.Join(pe.distroDir, "etc", "environment"))
	if err != nil {
		return prepend, override
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(strings.ReplaceAll(parts[1], "\"", ""))

		if strings.HasSuffix(key, "PATH") {
			prepend[key] = value
		} else {
			override[key] = value
		}
	}

	return prepend, override
}
