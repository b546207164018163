package cibox_distro

import (
	"fmt"
	"strings"

	"github.com/thoas/go-funk"

	cibox_arch "github.com/infra-whizz/cibox/arch"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// Request is what a caller asks for.
type Request struct {
	Distro  string
	Release string
	Arch    string
	Local   bool
}

// ConfigurationNotFoundError means that no registered descriptor satisfies
// a request. It carries the request for diagnostics.
type ConfigurationNotFoundError struct {
	Request Request
}

func (e *ConfigurationNotFoundError) Error() string {
	mode := InstallationProot
	if e.Request.Local {
		mode = InstallationLocal
	}
	return fmt.Sprintf("No distribution configuration found for distro=%s release=%s arch=%s installation=%s",
		e.Request.Distro, e.Request.Release, e.Request.Arch, mode)
}

// 64 bit architectures cannot be emulated on a 32 bit host and the
// reverse also holds.
var emulationBlacklist = map[string]string{
	"x86":    "x86_64",
	"x86_64": "x86",
}

// Matcher resolves requests against the descriptor registry.
type Matcher struct {
	registry    []*Descriptor
	hostOS      string
	hostMachine string
}

// NewMatcher constructor, bound to the real host
func NewMatcher() *Matcher {
	m := new(Matcher)
	m.registry = Registry()
	m.hostOS = cibox_lib.GetCurrentPlatform()
	m.hostMachine = cibox_arch.HostMachine()
	return m
}

// SetHost overrides host detection
func (m *Matcher) SetHost(hostOS string, machine string) *Matcher {
	m.hostOS = hostOS
	m.hostMachine = machine
	return m
}

// SetRegistry overrides the descriptor table
func (m *Matcher) SetRegistry(registry []*Descriptor) *Matcher {
	m.registry = registry
	return m
}

// HostArch returns the universal name of the host architecture.
func (m *Matcher) HostArch() string {
	return cibox_arch.Universal(m.hostMachine)
}

// validArchs computes the architectures of a descriptor that can actually
// be realised on this host.
func (m *Matcher) validArchs(d *Descriptor) []string {
	host := cibox_arch.Universal(m.hostMachine)

	switch d.Installation {
	case InstallationNative:
		return []string{d.ArchAlias(m.hostMachine)}
	case InstallationLocal:
		// Local prefixes run binaries directly, no emulation at all
		archs := []string{}
		for _, a := range d.Archs {
			if cibox_arch.Universal(a) == host {
				archs = append(archs, a)
			}
		}
		return archs
	default:
		archs := []string{}
		for _, a := range d.Archs {
			if cibox_arch.Universal(a) != emulationBlacklist[host] {
				archs = append(archs, a)
			}
		}
		return archs
	}
}

// matchOne checks a single descriptor against a request and returns a
// narrowed Config, or nil when the descriptor does not satisfy it.
func (m *Matcher) matchOne(d *Descriptor, req Request) *Config {
	if d.Platform != m.hostOS {
		return nil
	}
	if req.Distro != d.Distro {
		return nil
	}
	if d.Platform == "linux" && req.Local != (d.Installation == InstallationLocal) {
		return nil
	}
	if d.Release != "" && req.Release != d.Release {
		return nil
	}

	requested := req.Arch
	if requested == "" {
		requested = m.hostMachine
	}
	converted := d.ArchAlias(requested)

	if !funk.ContainsString(m.validArchs(d), converted) {
		return nil
	}

	return &Config{Descriptor: d, Arch: converted}
}

// Match resolves a request to exactly one configuration. First match in
// registration order wins.
func (m *Matcher) Match(req Request) (*Config, error) {
	for _, d := range m.registry {
		if cfg := m.matchOne(d, req); cfg != nil {
			return cfg, nil
		}
	}
	return nil, &ConfigurationNotFoundError{Request: req}
}

// MatchOrPersisted resolves a request directly, falling back to the
// distribution details persisted in containerDir when the direct phase
// fails. This lets "use" style invocations omit flags they committed to
// at creation time. Both phases failing returns the direct-phase error.
func (m *Matcher) MatchOrPersisted(req Request, containerDir string) (*Config, error) {
	cfg, direct := m.Match(req)
	if direct == nil {
		return cfg, nil
	}

	persisted, err := ReadExisting(containerDir)
	if err != nil || persisted == nil {
		return nil, direct
	}

	cfg, err = m.Match(Request{
		Distro:  persisted.Distro,
		Release: persisted.Release,
		Arch:    persisted.Arch,
		Local:   persisted.Installation == InstallationLocal,
	})
	if err != nil {
		return nil, direct
	}
	return cfg, nil
}

// ConfigIter lazily walks all valid configurations, one per architecture
// per descriptor. Finite and non-restartable.
type ConfigIter struct {
	m     *Matcher
	di    int
	ai    int
	archs []string
}

// Enumerate returns an iterator over every configuration realisable on
// this host.
func (m *Matcher) Enumerate() *ConfigIter {
	return &ConfigIter{m: m}
}

// Next yields the following configuration, or false when exhausted.
func (it *ConfigIter) Next() (*Config, bool) {
	for {
		if it.di >= len(it.m.registry) {
			return nil, false
		}
		d := it.m.registry[it.di]

		if it.archs == nil {
			if d.Platform != it.m.hostOS {
				it.di++
				continue
			}
			it.archs = it.m.validArchs(d)
			it.ai = 0
		}

		if it.ai >= len(it.archs) {
			it.di++
			it.archs = nil
			continue
		}

		cfg := &Config{Descriptor: d, Arch: it.archs[it.ai]}
		it.ai++
		return cfg, true
	}
}

func formatArch(template string, arch string) string {
	return strings.ReplaceAll(template, "{arch}", arch)
}
