package cibox_lib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blakesmith/ar"
)

// ExtractDebData unpacks the data payload of a Debian package into
// destDir, without touching any dpkg state. Member paths go through the
// same traversal validation as any other tarball.
func ExtractDebData(debPath string, destDir string) error {
	deb, err := os.Open(debPath)
	if err != nil {
		return err
	}
	defer deb.Close()

	reader := ar.NewReader(deb)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("Unable to read ar member of %s: %s", debPath, err.Error())
		}

		name := filepath.Base(header.Name)
		if name != "data.tar.gz" && name != "data.tar.xz" && name != "data.tar.bz2" {
			continue
		}

		// Spool the payload to disk so it can be scanned before
		// anything is unpacked out of it.
		payload, err := spoolPayload(reader, name)
		if err != nil {
			return err
		}
		defer os.RemoveAll(filepath.Dir(payload))

		return ExtractTar(payload, destDir, TarOptions{SkipDevices: true})
	}

	return fmt.Errorf("No data payload found in %s", debPath)
}

func spoolPayload(src io.Reader, name string) (string, error) {
	dir, err := os.MkdirTemp("", "cibox-deb")
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, name)

	out, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	return target, nil
}
