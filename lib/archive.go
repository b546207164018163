package cibox_lib

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/ulikunitz/xz"
)

// PathTraversalError is raised when an archive member would land outside
// of the extraction directory. Nothing is extracted when this happens.
type PathTraversalError struct {
	Member string
	Dest   string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("Archive member '%s' escapes extraction directory %s", e.Member, e.Dest)
}

// TarOptions control archive extraction.
type TarOptions struct {
	// SkipDevices drops character/block device members. Device nodes
	// need privileges this process does not have.
	SkipDevices bool
}

// ExtractTar unpacks a tarball (optionally gzip/bzip2/xz compressed) into
// destDir. Every member path is validated against destDir before a single
// file is written; a traversal attempt aborts the whole extraction.
func ExtractTar(archivePath string, destDir string, opts TarOptions) error {
	destDir = filepath.Clean(destDir)

	// Validation pass first, so a malicious archive never gets partially
	// extracted.
	if err := scanTar(archivePath, destDir); err != nil {
		return err
	}

	file, reader, err := openTar(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	wzlib_logger.GetCurrentLogger().Debugf("Extracting %s to %s", archivePath, destDir)

	if err := SafeMakedirs(destDir); err != nil {
		return err
	}

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("Unable to read tar header: %s", err.Error())
		}

		if opts.SkipDevices && (header.Typeflag == tar.TypeChar || header.Typeflag == tar.TypeBlock || header.Typeflag == tar.TypeFifo) {
			continue
		}

		target := filepath.Join(destDir, header.Name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := SafeMakedirs(filepath.Dir(target)); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := SafeMakedirs(filepath.Dir(target)); err != nil {
				return err
			}
			// Existing links get overwritten, extraction is idempotent
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			if err := SafeMakedirs(filepath.Dir(target)); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Link(filepath.Join(destDir, header.Linkname), target); err != nil {
				return err
			}
		}
	}

	return nil
}

// scanTar walks all headers, rejecting any member whose resolved path
// would land outside destDir. A member path textually inside destDir can
// still escape when it is written through a symlink member of the same
// archive, so members whose path crosses a symlinked ancestor are
// rejected as well, regardless of member order.
func scanTar(archivePath string, destDir string) error {
	file, reader, err := openTar(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	type member struct {
		name     string
		linkname string
		typeflag byte
	}

	members := []member{}
	symlinks := map[string]bool{}

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("Unable to read tar header: %s", err.Error())
		}

		target := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(filepath.Clean(target)+string(os.PathSeparator), destDir+string(os.PathSeparator)) {
			return &PathTraversalError{Member: header.Name, Dest: destDir}
		}

		if header.Typeflag == tar.TypeLink {
			linked := filepath.Join(destDir, header.Linkname)
			if !strings.HasPrefix(filepath.Clean(linked)+string(os.PathSeparator), destDir+string(os.PathSeparator)) {
				return &PathTraversalError{Member: header.Linkname, Dest: destDir}
			}
		}

		if header.Typeflag == tar.TypeSymlink {
			symlinks[memberPath(header.Name)] = true
		}
		members = append(members, member{name: header.Name, linkname: header.Linkname, typeflag: header.Typeflag})
	}

	for _, m := range members {
		if crossesSymlink(symlinks, memberPath(m.name), m.typeflag != tar.TypeSymlink) {
			return &PathTraversalError{Member: m.name, Dest: destDir}
		}
		if m.typeflag == tar.TypeLink && crossesSymlink(symlinks, memberPath(m.linkname), true) {
			return &PathTraversalError{Member: m.linkname, Dest: destDir}
		}
	}
	return nil
}

// memberPath normalises an archive member name to a clean slash path
// relative to the extraction root.
func memberPath(name string) string {
	return strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "./")
}

// crossesSymlink reports whether pth or, when includeSelf is set, any of
// its ancestors is a known symlink member. Writing through such a path
// would follow the link outside the validated tree.
func crossesSymlink(symlinks map[string]bool, pth string, includeSelf bool) bool {
	if includeSelf && symlinks[pth] {
		return true
	}
	for {
		idx := strings.LastIndex(pth, "/")
		if idx < 0 {
			return false
		}
		pth = pth[:idx]
		if symlinks[pth] {
			return true
		}
	}
}

// openTar opens a tarball and layers the decompressor matching its
// suffix. Files without a recognised suffix get sniffed by content:
// download URLs like .../tarball/master carry no extension at all.
func openTar(archivePath string) (*os.File, io.Reader, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, err
	}

	var compression string
	switch {
	case strings.HasSuffix(archivePath, ".tar.gz") || strings.HasSuffix(archivePath, ".tgz"):
		compression = "gz"
	case strings.HasSuffix(archivePath, ".tar.bz2") || strings.HasSuffix(archivePath, ".tbz2"):
		compression = "bz2"
	case strings.HasSuffix(archivePath, ".tar.xz") || strings.HasSuffix(archivePath, ".txz"):
		compression = "xz"
	case strings.HasSuffix(archivePath, ".tar"):
		compression = "tar"
	default:
		compression = sniffCompression(file)
	}

	var reader io.Reader = file
	switch compression {
	case "gz":
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("Unable to open gzip stream: %s", err.Error())
		}
		reader = gzReader
	case "bz2":
		reader = bzip2.NewReader(file)
	case "xz":
		xzReader, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("Unable to open xz stream: %s", err.Error())
		}
		reader = xzReader
	}

	return file, reader, nil
}

// sniffCompression detects the compression by magic bytes. Unknown
// content is treated as a plain tar stream and fails later with the tar
// reader's own diagnostics.
func sniffCompression(file *os.File) string {
	magic := make([]byte, 6)
	n, err := file.ReadAt(magic, 0)
	if err != nil && n < 3 {
		return "tar"
	}

	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return "gz"
	case magic[0] == 'B' && magic[1] == 'Z' && magic[2] == 'h':
		return "bz2"
	case n >= 6 && magic[0] == 0xfd && magic[1] == '7' && magic[2] == 'z' &&
		magic[3] == 'X' && magic[4] == 'Z' && magic[5] == 0x00:
		return "xz"
	}
	return "tar"
}
