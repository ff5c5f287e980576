package storage

import (
	"fmt"
	"os"
	"sync"
)

const dirPrefix = "scopecheck-browser-data-"

// Dir manages a directory used by a browser or driver for its data.
// A directory created by Make is removed by Cleanup, a user supplied one
// is left in place.
type Dir struct {
	Dir string

	mu     sync.Mutex
	remove bool
}

// Make creates a new temporary directory in tmpDir, or uses dir when it is
// not empty. An empty tmpDir means the OS default temporary directory.
func (d *Dir) Make(tmpDir, dir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dir != "" {
		d.Dir = dir
		return nil
	}

	var err error
	if d.Dir, err = os.MkdirTemp(tmpDir, dirPrefix+"*"); err != nil {
		d.Dir = ""
		return fmt.Errorf("making a temporary data directory: %w", err)
	}
	d.remove = true

	return nil
}

// Cleanup removes the directory if Make created it. It is safe to call
// more than once.
func (d *Dir) Cleanup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.remove {
		return nil
	}
	d.remove = false

	if err := os.RemoveAll(d.Dir); err != nil {
		return fmt.Errorf("removing data directory %q: %w", d.Dir, err)
	}

	return nil
}
