package cibox

import (
	"path/filepath"
	"testing"

	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_pm "github.com/infra-whizz/cibox/pm"
)

// inertContainer records lifecycle calls without touching the system.
type inertContainer struct {
	cleaned int
}

func (ic *inertContainer) Executor() cibox_exec.Executor {
	return nil
}

func (ic *inertContainer) PackageSystem() cibox_pm.PackageSystem {
	return nil
}

func (ic *inertContainer) Root() string {
	return ""
}

func (ic *inertContainer) Clean() error {
	ic.cleaned++
	return nil
}

func TestCreateCleansOnSuccess(t *testing.T) {
	container := &inertContainer{}
	if err := installAndClean(container, "", ""); err != nil {
		t.Fatalf("Install failed: %s", err.Error())
	}
	if container.cleaned != 1 {
		t.Fatalf("Expected one clean call, got %d", container.cleaned)
	}
}

func TestCreateCleansOnFailedInstall(t *testing.T) {
	container := &inertContainer{}

	// A packages file that does not exist fails the install step.
	missing := filepath.Join(t.TempDir(), "PACKAGES")
	err := installAndClean(container, "", missing)
	if err == nil {
		t.Fatal("Missing packages file was accepted")
	}
	if container.cleaned != 1 {
		t.Fatalf("Failed install skipped the clean step: %d clean calls", container.cleaned)
	}
}
