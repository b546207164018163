package cibox_pm

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/karrick/godirwalk"
)

// ReSymlink rewrites absolute symlinks inside a package prefix into
// relative ones. Debian payloads link against absolute paths, which
// resolve to the host filesystem when the prefix is used without root
// emulation.
type ReSymlink struct {
	prefix      string
	skipTopDirs []string

	wzlib_logger.WzLogger
}

// NewReSymlink constructor
func NewReSymlink(prefix string) *ReSymlink {
	rsl := new(ReSymlink)
	rsl.prefix = prefix
	rsl.skipTopDirs = []string{"proc", "sys", "dev", "run", "boot", "tmp", "mnt"}
	return rsl
}

// a2r converts an absolute link target into a relative counterpart for
// a link living at pathname inside the prefix.
func (rsl *ReSymlink) a2r(pathname string, target string) string {
	inner := path.Dir(filepath.ToSlash(pathname[len(rsl.prefix):]))
	levels := strings.Split(inner, "/")
	if levels[0] == "" {
		levels = levels[1:]
	}
	rjump := "./"
	for i := 0; i < len(levels); i++ {
		rjump += "../"
	}

	return path.Clean(path.Join(rjump, target))
}

// Callback on each dirwalk event
func (rsl *ReSymlink) callback(pathname string, dirEntry *godirwalk.Dirent) error {
	for _, skipTopDir := range rsl.skipTopDirs {
		if strings.HasPrefix(pathname, filepath.Join(rsl.prefix, skipTopDir)) {
			return filepath.SkipDir
		}
	}

	if dirEntry.IsSymlink() {
		target, _ := os.Readlink(pathname)
		if strings.HasPrefix(target, "/") {
			if err := os.Remove(pathname); err != nil {
				return fmt.Errorf("Broken link (%s) removal error: %s", pathname, err.Error())
			}
			if err := os.Symlink(rsl.a2r(pathname, target), pathname); err != nil {
				return fmt.Errorf("Symlink error: %s", err.Error())
			}
		}
	}

	return nil
}

// Relink absolute symlinks to relative
func (rsl *ReSymlink) Relink() error {
	opts := &godirwalk.Options{
		Callback: rsl.callback,
	}
	return godirwalk.Walk(rsl.prefix, opts)
}
