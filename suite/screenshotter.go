package suite

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/storage"
)

// errNoScreenshots is returned for drivers that cannot capture the page.
var errNoScreenshots = errors.New("driver does not support screenshots")

// screenshotter saves PNG captures of failed scenarios.
type screenshotter struct {
	dir       string
	persister storage.FilePersister
}

func newScreenshotter(dir string, persister storage.FilePersister) *screenshotter {
	if persister == nil {
		persister = &storage.LocalFilePersister{}
	}
	return &screenshotter{dir: dir, persister: persister}
}

// capture screenshots d and stores it under a name made of parts. It
// returns the path written.
func (s *screenshotter) capture(ctx context.Context, d api.Driver, parts ...string) (string, error) {
	sc, ok := d.(api.Screenshotter)
	if !ok {
		return "", errNoScreenshots
	}
	buf, err := sc.Screenshot(ctx)
	if err != nil {
		return "", errors.Wrap(err, "unable to capture screenshot")
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s.png", strings.Join(parts, "-")))
	if err := s.persister.Persist(ctx, path, bytes.NewReader(buf)); err != nil {
		return "", errors.Wrapf(err, "unable to save screenshot to %q", path)
	}

	return path, nil
}
