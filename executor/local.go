package cibox_exec

import (
	"path/filepath"
	"strings"
)

// LocalExecutor runs commands directly on the host, pointing tool
// discovery at a private package prefix through environment variables.
// Operations that need root emulation delegate to the proot executor.
type LocalExecutor struct {
	prefix string
	full   *ProotExecutor

	BaseExecutor
}

// NewLocalExecutor constructor. full handles RequiresFullAccess calls.
func NewLocalExecutor(prefix string, full *ProotExecutor) *LocalExecutor {
	le := new(LocalExecutor)
	le.prefix = prefix
	le.full = full
	le.ref = le
	return le
}

// Root of the package prefix
func (le *LocalExecutor) Root() string {
	return le.prefix
}

// BuildInvocation injects prefix-first search paths, so guest-installed
// binaries and libraries resolve ahead of host ones.
func (le *LocalExecutor) BuildInvocation(argv []string, flags Flags) (*Invocation, error) {
	if flags.RequiresFullAccess && le.full != nil {
		return le.full.BuildInvocation(argv, flags)
	}

	libDirs := []string{
		filepath.Join(le.prefix, "usr", "lib", "x86_64-linux-gnu"),
		filepath.Join(le.prefix, "usr", "lib", "i686-linux-gnu"),
		filepath.Join(le.prefix, "usr", "lib"),
	}
	pkgconfigDirs := []string{
		filepath.Join(le.prefix, "usr", "lib", "pkgconfig"),
		filepath.Join(le.prefix, "usr", "lib", "x86_64-linux-gnu", "pkgconfig"),
		filepath.Join(le.prefix, "usr", "lib", "i686-linux-gnu", "pkgconfig"),
	}
	includeDirs := []string{
		filepath.Join(le.prefix, "usr", "include"),
	}

	prepend := map[string]string{
		"LD_LIBRARY_PATH": strings.Join(libDirs, ":"),
		"LIBRARY_PATH":    strings.Join(libDirs, ":"),
		"PKG_CONFIG_PATH": strings.Join(pkgconfigDirs, ":"),
		"PATH":            filepath.Join(le.prefix, "usr", "bin"),
		"CPATH":           strings.Join(includeDirs, ":"),
		"CPPPATH":         strings.Join(includeDirs, ":"),
	}

	return &Invocation{Argv: argv, Prepend: prepend, Override: map[string]string{}}, nil
}
