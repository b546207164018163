package cibox_lib

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
)

// CacheDirEnv points at a directory where fetched artifacts are memoised
// between runs. Mainly a testing aid, not required for production use.
const CacheDirEnv = "CIBOX_DOWNLOAD_CACHE"

// Fetcher downloads remote artifacts to local files. The lifecycle
// orchestrator only ever sees this narrow contract, the transport
// behind it is replaceable.
type Fetcher interface {
	// Fetch downloads url and stores it at filename inside dir.
	// An empty filename means the base name of the URL.
	// Returns an absolute path to the downloaded file.
	Fetch(rawurl string, dir string, filename string) (string, error)
}

// HTTPFetcher object
type HTTPFetcher struct {
	cacheDir string
	client   *http.Client

	wzlib_logger.WzLogger
}

// NewHTTPFetcher constructor. The cache directory is taken from the
// CIBOX_DOWNLOAD_CACHE environment variable, if set.
func NewHTTPFetcher() *HTTPFetcher {
	hf := new(HTTPFetcher)
	hf.cacheDir = os.Getenv(CacheDirEnv)
	hf.client = http.DefaultClient
	return hf
}

// SetCacheDir overrides artifact memoisation location
func (hf *HTTPFetcher) SetCacheDir(dir string) *HTTPFetcher {
	hf.cacheDir = dir
	return hf
}

// Fetch downloads rawurl into dir under filename.
func (hf *HTTPFetcher) Fetch(rawurl string, dir string, filename string) (string, error) {
	if filename == "" {
		parsed, err := url.Parse(rawurl)
		if err != nil {
			return "", fmt.Errorf("Unable to parse URL '%s': %s", rawurl, err.Error())
		}
		filename = path.Base(parsed.Path)
	}

	target, err := filepath.Abs(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}

	if cached := hf.cachedCopy(rawurl); cached != "" {
		hf.GetLogger().Debugf("Using cached copy of %s", rawurl)
		return target, copyFile(cached, target)
	}

	hf.GetLogger().Infof("Downloading %s", rawurl)
	if err := hf.download(rawurl, target); err != nil {
		return "", err
	}

	if hf.cacheDir != "" {
		if err := SafeMakedirs(hf.cacheDir); err == nil {
			_ = copyFile(target, filepath.Join(hf.cacheDir, cacheKey(rawurl)))
		}
	}

	return target, nil
}

func (hf *HTTPFetcher) download(rawurl string, target string) error {
	resp, err := hf.client.Get(rawurl)
	if err != nil {
		return fmt.Errorf("Unable to download %s: %s", rawurl, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Unable to download %s: %s", rawurl, resp.Status)
	}

	if err := SafeMakedirs(filepath.Dir(target)); err != nil {
		return err
	}

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func (hf *HTTPFetcher) cachedCopy(rawurl string) string {
	if hf.cacheDir == "" {
		return ""
	}
	cached := filepath.Join(hf.cacheDir, cacheKey(rawurl))
	if _, err := os.Stat(cached); err != nil {
		return ""
	}
	return cached
}

// cacheKey flattens a URL to a single safe filename
func cacheKey(rawurl string) string {
	key := make([]byte, 0, len(rawurl))
	for _, c := range []byte(rawurl) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
			key = append(key, c)
		default:
			key = append(key, '_')
		}
	}
	return string(key)
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := SafeMakedirs(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
