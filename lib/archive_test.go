package cibox_lib

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTar(t *testing.T, dir string, members map[string]string, special []*tar.Header) string {
	t.Helper()
	archive := filepath.Join(dir, "fixture.tar")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	defer tw.Close()

	for name, content := range members {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	for _, hdr := range special {
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
	}

	return archive
}

func TestExtractTarRejectsTraversal(t *testing.T) {
	workdir := t.TempDir()
	archive := writeTar(t, workdir, map[string]string{
		"ok.txt":    "fine",
		"../../evil": "nope",
	}, nil)

	dest := filepath.Join(workdir, "dest")
	err := ExtractTar(archive, dest, TarOptions{})

	var traversal *PathTraversalError
	if !errors.As(err, &traversal) {
		t.Fatalf("expected PathTraversalError, got %v", err)
	}

	// Nothing may be written, not even the valid member.
	if _, err := os.Stat(filepath.Join(dest, "ok.txt")); !os.IsNotExist(err) {
		t.Errorf("valid member was extracted before traversal was detected")
	}
	if _, err := os.Stat(filepath.Join(workdir, "evil")); !os.IsNotExist(err) {
		t.Errorf("traversal member escaped the extraction directory")
	}
}

func TestExtractTarRejectsWriteThroughSymlink(t *testing.T) {
	workdir := t.TempDir()

	// A sibling directory the symlink points at. Must stay untouched.
	outside := filepath.Join(workdir, "outside")
	if err := os.MkdirAll(outside, 0755); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(workdir, "fixture.tar")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(f)
	// The symlink target is textually inside the tree; the follow-up
	// member would be written through it and land in ../outside.
	if err := tw.WriteHeader(&tar.Header{Name: "foo", Typeflag: tar.TypeSymlink, Linkname: "../outside", Mode: 0777}); err != nil {
		t.Fatal(err)
	}
	content := "pwned"
	if err := tw.WriteHeader(&tar.Header{Name: "foo/evil.txt", Typeflag: tar.TypeReg, Size: int64(len(content)), Mode: 0644}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	f.Close()

	dest := filepath.Join(workdir, "area")
	extractErr := ExtractTar(archive, dest, TarOptions{})

	var traversal *PathTraversalError
	if !errors.As(extractErr, &traversal) {
		t.Fatalf("expected PathTraversalError, got %v", extractErr)
	}
	if _, err := os.Stat(filepath.Join(outside, "evil.txt")); !os.IsNotExist(err) {
		t.Errorf("member escaped the extraction directory through a symlink")
	}
	// Nothing may be written, not even the symlink itself.
	if _, err := os.Lstat(filepath.Join(dest, "foo")); !os.IsNotExist(err) {
		t.Errorf("partial content was extracted before detection")
	}
}

func TestExtractTarRejectsRegularOverSymlink(t *testing.T) {
	workdir := t.TempDir()

	archive := filepath.Join(workdir, "fixture.tar")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(f)
	if err := tw.WriteHeader(&tar.Header{Name: "cfg", Typeflag: tar.TypeSymlink, Linkname: "../secrets", Mode: 0777}); err != nil {
		t.Fatal(err)
	}
	content := "x"
	if err := tw.WriteHeader(&tar.Header{Name: "cfg", Typeflag: tar.TypeReg, Size: int64(len(content)), Mode: 0644}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	f.Close()

	var traversal *PathTraversalError
	if extractErr := ExtractTar(archive, filepath.Join(workdir, "dest"), TarOptions{}); !errors.As(extractErr, &traversal) {
		t.Fatalf("expected PathTraversalError, got %v", extractErr)
	}
}

func TestExtractTarSkipsDevices(t *testing.T) {
	workdir := t.TempDir()
	archive := writeTar(t, workdir, map[string]string{"etc/hostname": "box\n"}, []*tar.Header{
		{Name: "dev/null", Typeflag: tar.TypeChar, Mode: 0666},
	})

	dest := filepath.Join(workdir, "dest")
	if err := ExtractTar(archive, dest, TarOptions{SkipDevices: true}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "etc", "hostname"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "box\n" {
		t.Errorf("unexpected file content: %q", data)
	}
	if _, err := os.Stat(filepath.Join(dest, "dev", "null")); !os.IsNotExist(err) {
		t.Errorf("device member should have been skipped")
	}
}

func TestExtractTarSniffsSuffixlessGzip(t *testing.T) {
	workdir := t.TempDir()

	// GitHub tarball URLs end in a ref name, so the downloaded file
	// carries no extension at all.
	archive := filepath.Join(workdir, "master")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	content := "#!/bin/sh\n"
	if err := tw.WriteHeader(&tar.Header{Name: "brew-1.0/bin/brew", Typeflag: tar.TypeReg, Size: int64(len(content)), Mode: 0755}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gw.Close()
	f.Close()

	dest := filepath.Join(workdir, "dest")
	if err := ExtractTar(archive, dest, TarOptions{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "brew-1.0", "bin", "brew"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("unexpected file content: %q", data)
	}
}

func TestExtractTarHonoursSymlinks(t *testing.T) {
	workdir := t.TempDir()
	archive := writeTar(t, workdir, map[string]string{"bin/sh.real": "#!"}, []*tar.Header{
		{Name: "bin/sh", Typeflag: tar.TypeSymlink, Linkname: "sh.real", Mode: 0777},
	})

	dest := filepath.Join(workdir, "dest")
	if err := ExtractTar(archive, dest, TarOptions{}); err != nil {
		t.Fatal(err)
	}

	link, err := os.Readlink(filepath.Join(dest, "bin", "sh"))
	if err != nil {
		t.Fatal(err)
	}
	if link != "sh.real" {
		t.Errorf("unexpected link target: %q", link)
	}
}
