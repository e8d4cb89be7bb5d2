package blobpack

import (
	"fmt"
	"sync/atomic"
)

// Buffer is a reference-counted handle to pooled byte storage.
//
// A producer fills the buffer with Write; the consumer drains the readable
// range [r, w) with Bytes and Skip. The buffer starts with one reference.
// When the last reference is released the storage goes back to its Pool and
// the buffer must not be used again.
//
// Reference counting is safe for concurrent use. Reading, writing and
// skipping are not: a single unit of work owns the buffer's contents.
type Buffer struct {
	refs atomic.Int32

	pool *Pool
	buf  []byte
	r    int
}

// Len returns the number of readable bytes remaining.
func (b *Buffer) Len() int {
	return len(b.buf) - b.r
}

// Bytes returns the readable bytes. The slice aliases the buffer storage and
// is only valid until the next Write, Skip or the final Release.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.r:]
}

// Skip consumes n readable bytes.
// It panics if n is negative or greater than Len.
func (b *Buffer) Skip(n int) {
	if n < 0 || n > b.Len() {
		panic(fmt.Sprintf("blobpack: skip %d of %d readable bytes", n, b.Len()))
	}
	b.r += n
}

// Write appends p to the readable range, growing the storage through the
// pool when needed. It implements io.Writer for producers.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.refs.Load() <= 0 {
		return 0, &LifecycleError{Op: "write", Refs: b.refs.Load()}
	}
	if need := len(b.buf) + len(p); need > cap(b.buf) {
		b.buf = b.pool.grow(b.buf, need)
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Refs returns the current reference count.
func (b *Buffer) Refs() int {
	return int(b.refs.Load())
}

// Retain adds a reference. Each Retain must be paired with one Release.
func (b *Buffer) Retain() error {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return &LifecycleError{Op: "retain", Refs: n}
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release drops a reference. Dropping the last one returns the storage to
// the pool. Releasing a buffer with no references left returns a
// *LifecycleError and leaves the pool untouched.
func (b *Buffer) Release() error {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return &LifecycleError{Op: "release", Refs: n}
		}
		if !b.refs.CompareAndSwap(n, n-1) {
			continue
		}
		if n == 1 {
			b.pool.reclaim(b.buf)
			b.buf = nil
			b.r = 0
		}
		return nil
	}
}
