package cibox_exec

import (
	"path/filepath"
)

// PrefixExecutor runs commands with no isolation at all, just a native
// package manager prefix injected first into the search paths. Used for
// the Homebrew and Chocolatey prefixes.
type PrefixExecutor struct {
	prefix string

	BaseExecutor
}

// NewPrefixExecutor constructor
func NewPrefixExecutor(prefix string) *PrefixExecutor {
	pe := new(PrefixExecutor)
	pe.prefix = prefix
	pe.ref = pe
	return pe
}

// Root of the native prefix
func (pe *PrefixExecutor) Root() string {
	return pe.prefix
}

// BuildInvocation injects the prefix's bin and lib directories.
func (pe *PrefixExecutor) BuildInvocation(argv []string, flags Flags) (*Invocation, error) {
	prepend := map[string]string{
		"PATH":            filepath.Join(pe.prefix, "bin"),
		"LD_LIBRARY_PATH": filepath.Join(pe.prefix, "lib"),
		"PKG_CONFIG_PATH": filepath.Join(pe.prefix, "lib", "pkgconfig"),
	}
	return &Invocation{Argv: argv, Prepend: prepend, Override: map[string]string{}}, nil
}
