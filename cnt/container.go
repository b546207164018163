package cibox_cnt

import (
	"fmt"
	"os"
	"strings"

	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_pm "github.com/infra-whizz/cibox/pm"
)

// Container is a realised distribution prefix commands can run in.
type Container interface {
	// Executor runs commands inside the container.
	Executor() cibox_exec.Executor

	// PackageSystem drives the container's native package manager.
	PackageSystem() cibox_pm.PackageSystem

	// Root is the container's filesystem location on the host.
	Root() string

	// Clean shrinks the container for caching. Destroys nothing a CI
	// job would need on the next run.
	Clean() error
}

// RequiredArtifactError means a container was addressed before being
// created: an on-disk artifact the realisation depends on is missing.
type RequiredArtifactError struct {
	Artifact string
}

func (e *RequiredArtifactError) Error() string {
	return fmt.Sprintf("Container artifact %s does not exist. Try creating the container first", e.Artifact)
}

// requireArtifacts verifies each path exists, failing on the first one
// that does not. No artifact is created as a side effect.
func requireArtifacts(paths ...string) error {
	for _, pth := range paths {
		if _, err := os.Stat(pth); err != nil {
			return &RequiredArtifactError{Artifact: pth}
		}
	}
	return nil
}

// InstallFromFiles reads repository and package lists from the given
// files and applies them to the container's package system. An empty
// packages path skips the whole step, matching the strict no-op rule
// for empty package lists. Blank lines and #-comments are ignored.
func InstallFromFiles(cnt Container, repositoriesPath string, packagesPath string) error {
	if packagesPath == "" {
		return nil
	}

	pkgsys := cnt.PackageSystem()
	if repositoriesPath != "" {
		repos, err := readList(repositoriesPath)
		if err != nil {
			return err
		}
		if err := pkgsys.AddRepositories(repos); err != nil {
			return err
		}
	}

	packages, err := readWords(packagesPath)
	if err != nil {
		return err
	}
	return pkgsys.InstallPackages(packages)
}

// readList returns the file's lines with blanks and comments dropped.
func readList(pth string) ([]string, error) {
	content, err := os.ReadFile(pth)
	if err != nil {
		return nil, err
	}
	lines := []string{}
	for _, line := range strings.Split(string(content), "\n") {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// readWords returns all whitespace separated tokens from non-comment
// lines of the file.
func readWords(pth string) ([]string, error) {
	lines, err := readList(pth)
	if err != nil {
		return nil, err
	}
	words := []string{}
	for _, line := range lines {
		words = append(words, strings.Fields(line)...)
	}
	return words, nil
}
