// Package storage persists the files scopecheck produces: failure
// screenshots, downloaded driver binaries and browser data directories.
package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const defaultFilePerm os.FileMode = 0o600

// FilePersister will persist files. It abstracts away the where and how of
// writing files to the source destination.
type FilePersister interface {
	Persist(ctx context.Context, path string, data io.Reader) error
}

// LocalFilePersister will persist files to the local disk.
type LocalFilePersister struct {
	// Perm is the permission of created files. Zero means 0600.
	Perm os.FileMode
}

// Persist will write the contents of data to the local disk on the specified
// path, creating parent directories and truncating an existing file.
func (l *LocalFilePersister) Persist(ctx context.Context, path string, data io.Reader) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("persisting %q: %w", path, err)
	}

	cp := filepath.Clean(path)

	dir := filepath.Dir(cp)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating a local directory %q: %w", dir, err)
	}

	perm := l.Perm
	if perm == 0 {
		perm = defaultFilePerm
	}
	f, err := os.OpenFile(cp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating a local file %q: %w", cp, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing the local file %q: %w", cp, cerr)
		}
	}()
	// O_CREATE only applies perm to new files.
	if err := f.Chmod(perm); err != nil {
		return fmt.Errorf("setting mode of %q: %w", cp, err)
	}

	bf := bufio.NewWriter(f)
	if _, err := io.Copy(bf, data); err != nil {
		return fmt.Errorf("copying data to file: %w", err)
	}
	if err := bf.Flush(); err != nil {
		return fmt.Errorf("flushing data to disk: %w", err)
	}

	return nil
}
