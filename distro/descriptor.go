package cibox_distro

import (
	cibox_arch "github.com/infra-whizz/cibox/arch"
)

// Installation modes
const (
	InstallationProot  = "proot"
	InstallationLocal  = "local"
	InstallationNative = "native"
)

// Package system bindings. The actual strategy objects live in the pm
// package and get bound to a container at realisation time.
type PkgSysKind string

const (
	PkgDpkg      PkgSysKind = "dpkg"
	PkgDpkgLocal PkgSysKind = "dpkg-local"
	PkgYum       PkgSysKind = "yum"
	PkgBrew      PkgSysKind = "brew"
	PkgChoco     PkgSysKind = "choco"
)

// Descriptor is one registered distribution configuration. Immutable,
// created once at process start.
type Descriptor struct {
	// Distro kind: "Ubuntu", "Debian", "Fedora", "OSX" or "Windows"
	Distro string

	// Release codename or number. Empty for native prefixes.
	Release string

	// URL of the root filesystem tarball, with an {arch} placeholder.
	// Empty for native prefixes that bootstrap themselves.
	URL string

	// Archs lists valid architectures in this distro's own naming.
	Archs []string

	// ArchAlias normalises an arbitrary architecture name into this
	// distro's naming convention.
	ArchAlias func(string) string

	PkgSys       PkgSysKind
	Installation string

	// Platform required on the host: "linux", "darwin" or "windows"
	Platform string
}

// Config is a Descriptor narrowed down to a single concrete architecture.
type Config struct {
	*Descriptor
	Arch string
}

// Registry returns all known distribution descriptors in match order.
// Order matters: the first descriptor satisfying a request wins.
func Registry() []*Descriptor {
	return []*Descriptor{
		{
			Distro:  "Ubuntu",
			Release: "precise",
			URL: "http://old-releases.ubuntu.com/releases/ubuntu-core/releases/12.04.3/release/" +
				"ubuntu-core-12.04.3-core-{arch}.tar.gz",
			Archs:        []string{"i386", "amd64", "armhf"},
			ArchAlias:    cibox_arch.Debian,
			PkgSys:       PkgDpkg,
			Installation: InstallationProot,
			Platform:     "linux",
		},
		{
			Distro:  "Ubuntu",
			Release: "trusty",
			URL: "http://old-releases.ubuntu.com/releases/ubuntu-core/releases/utopic/release/" +
				"ubuntu-core-14.10-core-{arch}.tar.gz",
			Archs:        []string{"i386", "amd64", "armhf", "powerpc"},
			ArchAlias:    cibox_arch.Debian,
			PkgSys:       PkgDpkg,
			Installation: InstallationProot,
			Platform:     "linux",
		},
		{
			Distro:       "Debian",
			Release:      "wheezy",
			URL:          "http://download.openvz.org/template/precreated/debian-7.0-{arch}-minimal.tar.gz",
			Archs:        []string{"x86", "x86_64"},
			ArchAlias:    cibox_arch.Universal,
			PkgSys:       PkgDpkg,
			Installation: InstallationProot,
			Platform:     "linux",
		},
		{
			Distro:       "Debian",
			Release:      "squeeze",
			URL:          "http://download.openvz.org/template/precreated/debian-6.0-{arch}-minimal.tar.gz",
			Archs:        []string{"x86", "x86_64"},
			ArchAlias:    cibox_arch.Universal,
			PkgSys:       PkgDpkg,
			Installation: InstallationProot,
			Platform:     "linux",
		},
		{
			Distro:       "Fedora",
			Release:      "20",
			URL:          "http://download.openvz.org/template/precreated/fedora-20-{arch}.tar.gz",
			Archs:        []string{"x86", "x86_64"},
			ArchAlias:    cibox_arch.Universal,
			PkgSys:       PkgYum,
			Installation: InstallationProot,
			Platform:     "linux",
		},
		{
			Distro:  "Ubuntu",
			Release: "precise",
			URL: "http://old-releases.ubuntu.com/releases/ubuntu-core/releases/12.04.3/release/" +
				"ubuntu-core-12.04.3-core-{arch}.tar.gz",
			Archs:        []string{"i386", "amd64", "armhf"},
			ArchAlias:    cibox_arch.Debian,
			PkgSys:       PkgDpkgLocal,
			Installation: InstallationLocal,
			Platform:     "linux",
		},
		{
			Distro:  "Ubuntu",
			Release: "trusty",
			URL: "http://old-releases.ubuntu.com/releases/ubuntu-core/releases/utopic/release/" +
				"ubuntu-core-14.10-core-{arch}.tar.gz",
			Archs:        []string{"i386", "amd64", "armhf", "powerpc"},
			ArchAlias:    cibox_arch.Debian,
			PkgSys:       PkgDpkgLocal,
			Installation: InstallationLocal,
			Platform:     "linux",
		},
		{
			Distro:       "OSX",
			ArchAlias:    cibox_arch.Universal,
			PkgSys:       PkgBrew,
			Installation: InstallationNative,
			Platform:     "darwin",
		},
		{
			Distro:       "Windows",
			ArchAlias:    cibox_arch.Universal,
			PkgSys:       PkgChoco,
			Installation: InstallationNative,
			Platform:     "windows",
		},
	}
}

// FormatURL resolves the {arch} placeholder of the descriptor URL for
// a concrete architecture.
func (c *Config) FormatURL() string {
	return formatArch(c.URL, c.Arch)
}
