package blobpack

import (
	"sync/atomic"

	"github.com/bytedance/gopkg/lang/mcache"
)

// minGrow is the smallest capacity a growing buffer jumps to.
const minGrow = 4 << 10 // 4KB

// Pool hands out Buffers whose storage comes from size-classed mcache pools.
//
// Pool tracks how many buffers are live so callers can assert that a job
// released everything it acquired. Capacity and eviction are left to mcache.
// A Pool is safe for concurrent use; the zero value is ready to use.
type Pool struct {
	acquired  atomic.Int64
	reclaimed atomic.Int64
}

// PoolStats is a snapshot of buffer accounting.
type PoolStats struct {
	// Acquired is the number of buffers handed out.
	Acquired int64

	// Reclaimed is the number of buffers whose storage went back to the pool.
	Reclaimed int64
}

// Outstanding returns buffers handed out but not yet reclaimed.
func (s PoolStats) Outstanding() int64 {
	return s.Acquired - s.Reclaimed
}

// NewPool creates a Pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns an empty Buffer with room for at least capacity bytes and a
// reference count of one.
func (p *Pool) Get(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	b := &Buffer{pool: p, buf: mcache.Malloc(0, capacity)}
	b.refs.Store(1)
	p.acquired.Add(1)
	return b
}

// FromBytes returns a Buffer holding a copy of data.
func (p *Pool) FromBytes(data []byte) *Buffer {
	b := p.Get(len(data))
	b.buf = append(b.buf, data...)
	return b
}

// Stats returns the current accounting snapshot.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Acquired:  p.acquired.Load(),
		Reclaimed: p.reclaimed.Load(),
	}
}

// Outstanding returns the number of live buffers.
func (p *Pool) Outstanding() int64 {
	return p.Stats().Outstanding()
}

// grow moves buf into storage with capacity for at least need bytes.
func (p *Pool) grow(buf []byte, need int) []byte {
	c := max(2*cap(buf), need, minGrow)
	nbuf := mcache.Malloc(len(buf), c)
	copy(nbuf, buf)
	mcache.Free(buf)
	return nbuf
}

// reclaim returns the storage of a buffer whose last reference was dropped.
func (p *Pool) reclaim(buf []byte) {
	mcache.Free(buf)
	p.reclaimed.Add(1)
}
