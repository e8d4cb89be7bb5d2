package blobpack

import (
	"fmt"
	"os"
	"syscall"
)

// FileTarget is an Output Target backed by an open file.
//
// WriteAt performs one positional transfer per call and never loops, so
// short writes from the operating system reach WriteFully unchanged. A
// FileTarget with a size bound rejects bytes at or beyond the bound with
// ErrUnexpectedEndOfTarget and cuts writes that cross it.
//
// FileTarget is safe for concurrent WriteAt calls on disjoint ranges. It
// performs no locking.
type FileTarget struct {
	f    *os.File
	raw  syscall.RawConn
	size int64
}

// CreateTarget creates or truncates the file at path. A positive size
// preallocates the file to that length and bounds the target; zero leaves
// it unbounded.
func CreateTarget(path string, size int64) (*FileTarget, error) {
	if size < 0 {
		return nil, fmt.Errorf("blobpack: negative target size %d", size)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("blobpack: preallocate %s to %d bytes: %w", path, size, err)
		}
	}
	t, err := NewTarget(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

// NewTarget wraps an open file. The file stays owned by the caller until
// Close is called on the target. size bounds the target as in CreateTarget.
func NewTarget(f *os.File, size int64) (*FileTarget, error) {
	if size < 0 {
		return nil, fmt.Errorf("blobpack: negative target size %d", size)
	}
	raw, err := f.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("blobpack: raw conn for %s: %w", f.Name(), err)
	}
	return &FileTarget{f: f, raw: raw, size: size}, nil
}

// WriteAt writes a prefix of p at off in a single transfer.
func (t *FileTarget) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeOffset, off)
	}
	if t.size > 0 {
		if off >= t.size {
			return 0, fmt.Errorf("%w: offset %d, size %d", ErrUnexpectedEndOfTarget, off, t.size)
		}
		if rem := t.size - off; int64(len(p)) > rem {
			p = p[:rem]
		}
	}
	return t.pwrite(p, off)
}

// Size returns the size bound, or zero for an unbounded target.
func (t *FileTarget) Size() int64 {
	return t.size
}

// Name returns the path of the underlying file.
func (t *FileTarget) Name() string {
	return t.f.Name()
}

// Sync commits the file contents to stable storage.
func (t *FileTarget) Sync() error {
	return t.f.Sync()
}

// Close closes the underlying file.
func (t *FileTarget) Close() error {
	return t.f.Close()
}
