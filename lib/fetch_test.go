package cibox_lib

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchDownloadsIntoTarget(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("artifact-body"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetched, err := NewHTTPFetcher().Fetch(server.URL+"/artifacts/rootfs.tar.gz", dir, "")
	if err != nil {
		t.Fatalf("Fetch failed: %s", err.Error())
	}
	if fetched != filepath.Join(dir, "rootfs.tar.gz") {
		t.Fatalf("Unexpected target path: %s", fetched)
	}

	content, err := os.ReadFile(fetched)
	if err != nil {
		t.Fatal(err.Error())
	}
	if string(content) != "artifact-body" {
		t.Fatalf("Unexpected content: %s", string(content))
	}
	if hits != 1 {
		t.Fatalf("Expected one request, got %d", hits)
	}
}

func TestFetchMemoisesThroughCache(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("cached-artifact"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher().SetCacheDir(t.TempDir())
	rawurl := server.URL + "/proot"

	if _, err := fetcher.Fetch(rawurl, t.TempDir(), "proot"); err != nil {
		t.Fatalf("First fetch failed: %s", err.Error())
	}
	second, err := fetcher.Fetch(rawurl, t.TempDir(), "proot")
	if err != nil {
		t.Fatalf("Second fetch failed: %s", err.Error())
	}

	if hits != 1 {
		t.Fatalf("Cache was bypassed: %d requests", hits)
	}
	content, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err.Error())
	}
	if string(content) != "cached-artifact" {
		t.Fatalf("Unexpected cached content: %s", string(content))
	}
}

func TestFetchFailsOnHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	if _, err := NewHTTPFetcher().Fetch(server.URL+"/missing", t.TempDir(), ""); err == nil {
		t.Fatal("Missing artifact was accepted")
	}
}
