//go:build unix

package blobpack

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// pwrite issues a single pwrite(2). An interrupted call is reported as a
// zero-byte transfer so WriteFully retries it; EFBIG means the file cannot
// grow to the requested offset.
func (t *FileTarget) pwrite(p []byte, off int64) (int, error) {
	var (
		n    int
		werr error
	)
	if err := t.raw.Control(func(fd uintptr) {
		n, werr = unix.Pwrite(int(fd), p, off)
	}); err != nil {
		return 0, err
	}
	n = max(n, 0)
	switch {
	case werr == nil:
		return n, nil
	case errors.Is(werr, unix.EINTR), errors.Is(werr, unix.EAGAIN):
		return n, nil
	case errors.Is(werr, unix.EFBIG):
		return n, fmt.Errorf("%w: %w", ErrUnexpectedEndOfTarget, werr)
	default:
		return n, &os.PathError{Op: "pwrite", Path: t.f.Name(), Err: werr}
	}
}
