package cibox_pm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cibox_exec "github.com/infra-whizz/cibox/executor"
)

// recordingExecutor captures every argv it is asked to run.
type recordingExecutor struct {
	root  string
	calls [][]string
}

func (re *recordingExecutor) BuildInvocation(argv []string, flags cibox_exec.Flags) (*cibox_exec.Invocation, error) {
	return &cibox_exec.Invocation{Argv: argv}, nil
}

func (re *recordingExecutor) Execute(argv []string, flags cibox_exec.Flags) (int, string, string, error) {
	re.calls = append(re.calls, argv)
	return 0, "", "", nil
}

func (re *recordingExecutor) ExecuteSuccess(argv []string, flags cibox_exec.Flags) error {
	re.calls = append(re.calls, argv)
	return nil
}

func (re *recordingExecutor) Root() string {
	return re.root
}

func TestFormatRepositoriesMainArchive(t *testing.T) {
	lines := FormatRepositories([]string{"{ubuntu} {release} main"}, "trusty", "amd64")
	expected := "deb http://archive.ubuntu.com/ubuntu/ trusty main"
	if len(lines) != 1 || lines[0] != expected {
		t.Fatalf("Unexpected repository lines: %v", lines)
	}
}

func TestFormatRepositoriesPortArchive(t *testing.T) {
	for _, arch := range []string{"armhf", "arm64", "powerpc", "ppc64el"} {
		lines := FormatRepositories([]string{"{ubuntu} {release} main"}, "precise", arch)
		if !strings.Contains(lines[0], "http://ports.ubuntu.com/ubuntu-ports/") {
			t.Fatalf("Arch %s did not select the ports archive: %s", arch, lines[0])
		}
	}
}

func TestFormatRepositoriesDebianAndLaunchpad(t *testing.T) {
	lines := FormatRepositories([]string{
		"{debian}debian {release} main",
		"{launchpad}some/ppa/ubuntu {release} main",
	}, "wheezy", "i386")
	if lines[0] != "deb http://ftp.debian.org/debian wheezy main" {
		t.Fatalf("Debian placeholder not expanded: %s", lines[0])
	}
	if lines[1] != "deb http://ppa.launchpad.net/some/ppa/ubuntu wheezy main" {
		t.Fatalf("Launchpad placeholder not expanded: %s", lines[1])
	}
}

func TestEmptyInstallIsNoOp(t *testing.T) {
	re := &recordingExecutor{root: t.TempDir()}
	systems := []PackageSystem{
		NewDpkgPackageSystem("trusty", "amd64", re),
		NewDpkgLocalPackageSystem("trusty", "amd64", re, nil),
		NewYumPackageSystem(re, nil),
		NewBrewPackageSystem(re, nil),
		NewChocoPackageSystem(re),
	}
	for _, system := range systems {
		if err := system.InstallPackages([]string{}); err != nil {
			t.Fatalf("Empty install failed: %s", err.Error())
		}
	}
	if len(re.calls) != 0 {
		t.Fatalf("Empty install spawned processes: %v", re.calls)
	}
}

func TestDpkgLocalLayout(t *testing.T) {
	re := &recordingExecutor{root: t.TempDir()}
	pm := NewDpkgLocalPackageSystem("trusty", "amd64", re, nil)
	if err := pm.initializeDirectories(); err != nil {
		t.Fatalf("Layout initialisation failed: %s", err.Error())
	}

	for _, sub := range []string{
		"var/cache/apt/archives/partial",
		"var/lib/apt/lists/partial",
		"var/lib/dpkg/updates",
		"etc/apt/sources.list.d",
	} {
		if _, err := os.Stat(filepath.Join(re.root, filepath.FromSlash(sub))); err != nil {
			t.Fatalf("Missing layout directory %s", sub)
		}
	}
	for _, state := range []string{"status", "available"} {
		if _, err := os.Stat(filepath.Join(re.root, "var", "lib", "dpkg", state)); err != nil {
			t.Fatalf("Missing dpkg state file %s", state)
		}
	}

	conf, err := os.ReadFile(filepath.Join(re.root, "etc", "apt.conf"))
	if err != nil {
		t.Fatalf("Missing apt.conf: %s", err.Error())
	}
	if !strings.Contains(string(conf), "Architecture \"amd64\"") {
		t.Fatalf("apt.conf does not pin the architecture: %s", string(conf))
	}
}

func TestDpkgLocalRepositoriesMergeStable(t *testing.T) {
	re := &recordingExecutor{root: t.TempDir()}
	pm := NewDpkgLocalPackageSystem("trusty", "amd64", re, nil)

	if err := pm.AddRepositories([]string{"{ubuntu} {release} main", "{ubuntu} {release} universe"}); err != nil {
		t.Fatalf("First merge failed: %s", err.Error())
	}
	if err := pm.AddRepositories([]string{"{ubuntu} {release} main"}); err != nil {
		t.Fatalf("Second merge failed: %s", err.Error())
	}

	content, err := os.ReadFile(filepath.Join(re.root, "etc", "apt", "sources.list"))
	if err != nil {
		t.Fatalf("Missing sources.list: %s", err.Error())
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected two deduplicated source lines, got %v", lines)
	}
	if lines[0] > lines[1] {
		t.Fatalf("Source lines are not sorted: %v", lines)
	}
}

func TestFactoryRejectsUnknownKind(t *testing.T) {
	if _, err := NewPackageSystem("frobnicator", "trusty", "amd64", nil, nil); err == nil {
		t.Fatal("Unknown package system kind was accepted")
	}
}

func TestReSymlinkRewritesAbsoluteLinks(t *testing.T) {
	prefix := t.TempDir()
	libDir := filepath.Join(prefix, "usr", "lib")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatal(err.Error())
	}
	if err := os.WriteFile(filepath.Join(libDir, "libfoo.so.1"), []byte{}, 0644); err != nil {
		t.Fatal(err.Error())
	}
	link := filepath.Join(libDir, "libfoo.so")
	if err := os.Symlink("/usr/lib/libfoo.so.1", link); err != nil {
		t.Fatal(err.Error())
	}

	if err := NewReSymlink(prefix).Relink(); err != nil {
		t.Fatalf("Relink failed: %s", err.Error())
	}

	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err.Error())
	}
	if strings.HasPrefix(target, "/") {
		t.Fatalf("Link is still absolute: %s", target)
	}
	if _, err := os.Stat(link); err != nil {
		t.Fatalf("Rewritten link does not resolve: %s", err.Error())
	}
}

func TestIsURL(t *testing.T) {
	for _, name := range []string{"http://example.com/x.deb", "https://example.com/x.deb", "ftp://example.com/x.deb"} {
		if !isURL(name) {
			t.Fatalf("%s not recognised as URL", name)
		}
	}
	for _, name := range []string{"vim", "http", "https-everywhere"} {
		if isURL(name) {
			t.Fatalf("%s misrecognised as URL", name)
		}
	}
}
