package cibox_arch

import "testing"

func TestAliasKnownFamilies(t *testing.T) {
	cases := []struct {
		in        string
		debian    string
		universal string
		qemu      string
	}{
		{"i686", "i386", "x86", "i386"},
		{"x86", "i386", "x86", "i386"},
		{"amd64", "amd64", "x86_64", "x86_64"},
		{"x86_64", "amd64", "x86_64", "x86_64"},
		{"armel", "armhf", "arm", "arm"},
		{"powerpc", "powerpc", "ppc", "ppc"},
		{"ppc64", "ppc64el", "ppc64", "ppc64"},
	}

	for _, c := range cases {
		if out := Debian(c.in); out != c.debian {
			t.Errorf("Debian(%q) = %q, want %q", c.in, out, c.debian)
		}
		if out := Universal(c.in); out != c.universal {
			t.Errorf("Universal(%q) = %q, want %q", c.in, out, c.universal)
		}
		if out := Qemu(c.in); out != c.qemu {
			t.Errorf("Qemu(%q) = %q, want %q", c.in, out, c.qemu)
		}
	}
}

func TestAliasUnknownIsIdentity(t *testing.T) {
	for _, name := range []string{"riscv64", "s390x", "", "weird-arch"} {
		if Debian(name) != name || Universal(name) != name || Qemu(name) != name {
			t.Errorf("unknown architecture %q should map onto itself in all conventions", name)
		}
	}
}
