package cibox_arch

import (
	"github.com/thoas/go-funk"
)

// Family describes one processor architecture family and the names
// it goes by in the packaging systems we deal with.
type Family struct {
	Aliases   []string
	Debian    string
	Universal string
	Qemu      string
}

var families = []*Family{
	{
		Aliases:   []string{"i386", "i486", "i586", "i686", "x86"},
		Debian:    "i386",
		Universal: "x86",
		Qemu:      "i386",
	},
	{
		Aliases:   []string{"x86_64", "amd64"},
		Debian:    "amd64",
		Universal: "x86_64",
		Qemu:      "x86_64",
	},
	{
		Aliases:   []string{"arm", "armel", "armhf"},
		Debian:    "armhf",
		Universal: "arm",
		Qemu:      "arm",
	},
	{
		Aliases:   []string{"powerpc", "ppc"},
		Debian:    "powerpc",
		Universal: "ppc",
		Qemu:      "ppc",
	},
	{
		Aliases:   []string{"ppc64el", "ppc64"},
		Debian:    "ppc64el",
		Universal: "ppc64",
		Qemu:      "ppc64",
	},
}

// Lookup returns the family an architecture name belongs to. Names that do
// not belong to any known family are treated as self-describing: a synthetic
// family is returned that maps the name onto itself for every convention.
func Lookup(name string) *Family {
	for _, fam := range families {
		if funk.ContainsString(fam.Aliases, name) {
			return fam
		}
	}

	return &Family{Aliases: []string{name}, Debian: name, Universal: name, Qemu: name}
}

// Debian name of an architecture
func Debian(name string) string {
	return Lookup(name).Debian
}

// Universal name of an architecture
func Universal(name string) string {
	return Lookup(name).Universal
}

// Qemu suffix of an architecture
func Qemu(name string) string {
	return Lookup(name).Qemu
}
