package cibox_lib

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/isbm/go-shutil"
	"github.com/karrick/godirwalk"
)

// MergeTree copies src over dst entry by entry, creating directories as
// needed and replacing files and symlinks that already exist. Unlike a
// whole-tree copy it tolerates a populated destination.
func MergeTree(src string, dst string) error {
	return godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(pth string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(src, pth)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)
			if de.IsDir() {
				return SafeMakedirs(target)
			}
			if de.IsSymlink() {
				ref, err := os.Readlink(pth)
				if err != nil {
					return err
				}
				os.Remove(target)
				return os.Symlink(ref, target)
			}
			os.Remove(target)
			if err := shutil.CopyFile(pth, target, false); err != nil {
				return fmt.Errorf("Unable to copy %s: %s", rel, err.Error())
			}
			return nil
		},
		Unsorted: true,
	})
}
