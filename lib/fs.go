package cibox_lib

import (
	"os"
	"path"
)

// SafeMakedirs creates a directory tree, tolerating an existing one.
func SafeMakedirs(pth string) error {
	return os.MkdirAll(pth, 0755)
}

// SafeTouch creates an empty file if it does not exist yet, creating
// parent directories on the way.
func SafeTouch(pth string) error {
	if err := SafeMakedirs(path.Dir(pth)); err != nil {
		return err
	}
	f, err := os.OpenFile(pth, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}
