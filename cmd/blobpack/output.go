package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/meigma/blobpack"
)

// output stages the data file in a temp file next to its final path and
// renames it into place on Commit, so a partial archive is never visible
// at the final path.
type output struct {
	*blobpack.FileTarget

	destPath string
	tempPath string
}

// createOutput creates a temp file in destPath's directory preallocated to size.
func createOutput(destPath string, size int64) (*output, error) {
	f, err := os.CreateTemp(filepath.Dir(destPath), ".blobpack-")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			_ = f.Close()           //nolint:errcheck // best-effort cleanup
			_ = os.Remove(f.Name()) //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("preallocate %d bytes: %w", size, err)
		}
	}
	target, err := blobpack.NewTarget(f, size)
	if err != nil {
		_ = f.Close()           //nolint:errcheck // best-effort cleanup
		_ = os.Remove(f.Name()) //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return &output{FileTarget: target, destPath: destPath, tempPath: f.Name()}, nil
}

// Commit flushes and closes the temp file and renames it to the final path.
func (o *output) Commit() error {
	if err := o.Sync(); err != nil {
		_ = o.Discard() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("sync: %w", err)
	}
	if err := o.Close(); err != nil {
		_ = os.Remove(o.tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(o.tempPath, o.destPath); err != nil {
		_ = os.Remove(o.tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", o.destPath, err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (o *output) Discard() error {
	_ = o.Close() //nolint:errcheck // we're cleaning up
	return os.Remove(o.tempPath)
}
