// Package provision locates browser and driver binaries, downloading
// driver binaries into a local cache when they are missing.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/storage"
)

// ErrNotFound is returned when none of the requested binaries exist.
var ErrNotFound = errors.New("executable not found")

const (
	executablePerm  fs.FileMode = 0o755
	downloadTimeout             = 5 * time.Minute
)

var versionRe = regexp.MustCompile(`\d+(?:\.\d+)+`)

// lookPath is exec.LookPath, replaced in tests.
var lookPath = exec.LookPath //nolint:gochecknoglobals

// Provisioner finds executables and fetches missing driver binaries.
type Provisioner struct {
	// CacheDir holds downloaded binaries. Empty means
	// <user cache dir>/scopecheck/drivers.
	CacheDir  string
	Client    *http.Client
	Persister storage.FilePersister
	Logger    *log.Logger
}

// New returns a Provisioner that caches into cacheDir.
func New(cacheDir string, logger *log.Logger) *Provisioner {
	return &Provisioner{
		CacheDir:  cacheDir,
		Client:    &http.Client{Timeout: downloadTimeout},
		Persister: &storage.LocalFilePersister{Perm: executablePerm},
		Logger:    logger,
	}
}

// Dir returns the cache directory.
func (p *Provisioner) Dir() string {
	if p.CacheDir != "" {
		return p.CacheDir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "scopecheck", "drivers")
}

// Locate returns the first of names that exists, either as a path, in the
// cache directory or on PATH. Names are tried in order.
func (p *Provisioner) Locate(names ...string) (string, error) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if strings.ContainsRune(name, os.PathSeparator) || filepath.IsAbs(name) {
			if isFile(name) {
				return name, nil
			}
			continue
		}
		if cached := filepath.Join(p.Dir(), name); isFile(cached) {
			return cached, nil
		}
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	p.Logger.Debugf("provision", "none of %q found", names)

	return "", fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(names, ", "))
}

// Download fetches url into the cache directory as name, makes it
// executable and returns its path.
func (p *Provisioner) Download(ctx context.Context, url, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", name, err)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	p.Logger.Infof("provision", "downloading %s from %s", name, url)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("downloading %s: unexpected status %s", name, resp.Status)
	}

	// the binary only appears under its final name once it is complete
	path := filepath.Join(p.Dir(), name)
	partial := path + "." + uuid.NewString() + ".download"
	if err := p.Persister.Persist(ctx, partial, resp.Body); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	if err := os.Rename(partial, path); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("saving %s: %w", name, err)
	}

	return path, nil
}

// Version runs path --version and returns the first dotted version number
// it prints.
func (p *Provisioner) Version(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("reading version of %q: %w", path, err)
	}
	v, err := ParseVersion(string(out))
	if err != nil {
		return "", fmt.Errorf("reading version of %q: %w", path, err)
	}
	p.Logger.Debugf("provision", "%s is version %s", path, v)

	return v, nil
}

// ParseVersion returns the first dotted version number in out.
func ParseVersion(out string) (string, error) {
	v := versionRe.FindString(out)
	if v == "" {
		return "", fmt.Errorf("no version number in %q", strings.TrimSpace(out))
	}
	return v, nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
