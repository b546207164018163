package cibox_cnt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	cibox_distro "github.com/infra-whizz/cibox/distro"
)

// countingFetcher writes a placeholder file per request and counts the
// requests it served.
type countingFetcher struct {
	served []string
}

func (cf *countingFetcher) Fetch(rawurl string, dir string, filename string) (string, error) {
	cf.served = append(cf.served, rawurl)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	target := filepath.Join(dir, filename)
	return target, os.WriteFile(target, []byte(rawurl), 0644)
}

func ubuntuConfig(arch string) *cibox_distro.Config {
	return &cibox_distro.Config{
		Descriptor: &cibox_distro.Descriptor{
			Distro:       "Ubuntu",
			Release:      "trusty",
			URL:          "http://old-releases.ubuntu.com/ubuntu-core-14.10-core-{arch}.tar.gz",
			Archs:        []string{"i386", "amd64"},
			PkgSys:       cibox_distro.PkgDpkg,
			Installation: cibox_distro.InstallationProot,
			Platform:     "linux",
		},
		Arch: arch,
	}
}

func TestLayoutIsDeterministic(t *testing.T) {
	cfg := ubuntuConfig("amd64")
	root := "/ci/container"

	if ProotStamp(root) != filepath.Join(root, ".have-proot-distribution") {
		t.Fatalf("Unexpected stamp path: %s", ProotStamp(root))
	}
	if ProotBin(root) != filepath.Join(root, "_proot", "bin", "proot") {
		t.Fatalf("Unexpected proot path: %s", ProotBin(root))
	}
	if QemuBin(root, "armhf") != filepath.Join(root, "_proot", "bin", "qemu-arm") {
		t.Fatalf("Unexpected qemu path: %s", QemuBin(root, "armhf"))
	}

	expected := filepath.Join(root, "ubuntu-core-14.10-core-amd64.tar.gz.root")
	if DistroDir(root, cfg) != expected {
		t.Fatalf("Unexpected distro dir: %s", DistroDir(root, cfg))
	}
	if DistroDir(root, cfg) != DistroDir(root, cfg) {
		t.Fatal("Distro dir is not stable")
	}
	if DistroDir(root, ubuntuConfig("i386")) == DistroDir(root, cfg) {
		t.Fatal("Different architectures share a distro dir")
	}
}

func TestToolchainProvisionIsIdempotent(t *testing.T) {
	containerDir := t.TempDir()
	fetcher := &countingFetcher{}

	tp := NewToolchainProvisioner(containerDir, "x86_64", fetcher).
		SetHostMachine("x86_64").
		SetForceQemu(false)
	if err := tp.Provision(); err != nil {
		t.Fatalf("Provisioning failed: %s", err.Error())
	}

	if len(fetcher.served) != 1 {
		t.Fatalf("Expected a single proot download, got %v", fetcher.served)
	}
	if _, err := os.Stat(ProotStamp(containerDir)); err != nil {
		t.Fatal("Toolchain stamp was not written")
	}

	nfo, err := os.Stat(ProotBin(containerDir))
	if err != nil {
		t.Fatal("Proot binary was not installed")
	}
	if nfo.Mode()&0100 == 0 {
		t.Fatal("Proot binary is not executable")
	}

	// A stamped toolchain must not re-download anything.
	if err := tp.Provision(); err != nil {
		t.Fatalf("Second provisioning failed: %s", err.Error())
	}
	if len(fetcher.served) != 1 {
		t.Fatalf("Stamped toolchain was re-downloaded: %v", fetcher.served)
	}
}

func TestToolchainStampWrittenLast(t *testing.T) {
	containerDir := t.TempDir()

	// Simulate a crashed earlier run: toolchain dir exists, no stamp.
	if err := os.MkdirAll(filepath.Join(ProotDir(containerDir), "bin"), 0755); err != nil {
		t.Fatal(err.Error())
	}

	fetcher := &countingFetcher{}
	tp := NewToolchainProvisioner(containerDir, "x86_64", fetcher).
		SetHostMachine("x86_64").
		SetForceQemu(false)
	if err := tp.Provision(); err != nil {
		t.Fatalf("Reprovisioning failed: %s", err.Error())
	}
	if len(fetcher.served) == 0 {
		t.Fatal("Unstamped toolchain was trusted without reprovisioning")
	}
}

func TestContainerForNeverCreates(t *testing.T) {
	containerDir := t.TempDir()
	fetcher := &countingFetcher{}

	_, err := ContainerFor(containerDir, ubuntuConfig("amd64"), fetcher)
	if err == nil {
		t.Fatal("Use before create was accepted")
	}

	var artifactErr *RequiredArtifactError
	if !errors.As(err, &artifactErr) {
		t.Fatalf("Unexpected error type: %s", err.Error())
	}
	if len(fetcher.served) != 0 {
		t.Fatalf("Use path downloaded artifacts: %v", fetcher.served)
	}

	entries, err := os.ReadDir(containerDir)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(entries) != 0 {
		t.Fatalf("Use path created artifacts: %v", entries)
	}
}

func TestNeededEmulatorsExcludeHost(t *testing.T) {
	tp := NewToolchainProvisioner(t.TempDir(), "armhf", &countingFetcher{}).
		SetHostMachine("x86_64").
		SetRegistry([]*cibox_distro.Descriptor{
			ubuntuConfig("amd64").Descriptor,
			{Archs: []string{"armhf", "powerpc"}},
		})

	emulators := tp.neededEmulators()
	for _, name := range emulators {
		if name == "qemu-x86_64" {
			t.Fatalf("Host architecture emulator was kept: %v", emulators)
		}
	}
	found := map[string]bool{}
	for _, name := range emulators {
		found[name] = true
	}
	if !found["qemu-arm"] || !found["qemu-ppc"] {
		t.Fatalf("Expected arm and ppc emulators, got %v", emulators)
	}
}

func TestInstallFromFilesParsing(t *testing.T) {
	dir := t.TempDir()
	packages := filepath.Join(dir, "PACKAGES")
	content := "# build deps\nvim gdb\n\nncdu\n"
	if err := os.WriteFile(packages, []byte(content), 0644); err != nil {
		t.Fatal(err.Error())
	}

	words, err := readWords(packages)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(words) != 3 || words[0] != "vim" || words[1] != "gdb" || words[2] != "ncdu" {
		t.Fatalf("Unexpected package tokens: %v", words)
	}
}
