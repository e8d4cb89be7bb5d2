package blobpack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/blobpack/internal/ioutil"
)

// Block is a produced payload waiting for placement.
type Block struct {
	// Name identifies the block in logs and listings (e.g., a file path).
	Name string

	// Buffer holds the encoded bytes. The holder of the Block owns its reference.
	Buffer *Buffer

	// OriginalSize is the uncompressed size in bytes.
	OriginalSize int64

	// Compression is the algorithm used to encode Buffer.
	Compression Compression

	// Digest is the sha256 digest of the uncompressed content.
	Digest digest.Digest
}

// Size returns the encoded size in bytes.
func (b Block) Size() int64 {
	if b.Buffer == nil {
		return 0
	}
	return int64(b.Buffer.Len())
}

// Encoder turns payload streams into pooled, optionally zstd-compressed
// Buffers. It is safe for concurrent use; zstd encoders are pooled.
type Encoder struct {
	pool        *Pool
	compression Compression
	level       zstd.EncoderLevel
	sizeHint    int
	logger      *slog.Logger
	encoders    sync.Pool
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithEncoderLevel sets the zstd compression level.
func WithEncoderLevel(level zstd.EncoderLevel) EncoderOption {
	return func(e *Encoder) {
		e.level = level
	}
}

// WithSizeHint sets the initial capacity of each encoded buffer.
func WithSizeHint(n int) EncoderOption {
	return func(e *Encoder) {
		if n < 0 {
			n = 0
		}
		e.sizeHint = n
	}
}

// WithEncoderLogger sets the logger for encoding operations.
// If not set, logging is disabled.
func WithEncoderLogger(logger *slog.Logger) EncoderOption {
	return func(e *Encoder) {
		e.logger = logger
	}
}

// NewEncoder creates an Encoder drawing buffers from pool.
func NewEncoder(pool *Pool, compression Compression, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		pool:        pool,
		compression: compression,
		level:       zstd.SpeedDefault,
		sizeHint:    32 << 10,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// log returns the logger, falling back to a discard logger if nil.
func (e *Encoder) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

// Encode reads r to EOF and returns a Block whose Buffer holds the encoded
// bytes with one reference owned by the caller. On error no buffer is
// retained.
func (e *Encoder) Encode(ctx context.Context, name string, r io.Reader) (Block, error) {
	buf := e.pool.Get(e.sizeHint)
	block, err := e.encode(ctx, name, r, buf)
	if err != nil {
		if relErr := buf.Release(); relErr != nil {
			return Block{}, fmt.Errorf("encode %s: %w", name, relErr)
		}
		return Block{}, fmt.Errorf("encode %s: %w", name, err)
	}
	e.log().Debug("encoded block", "name", name, "size", block.Size(), "original_size", block.OriginalSize)
	return block, nil
}

func (e *Encoder) encode(ctx context.Context, name string, r io.Reader, buf *Buffer) (Block, error) {
	digester := digest.Canonical.Digester()
	cr := &ioutil.CountingReader{R: r}
	src := io.TeeReader(cr, digester.Hash())
	scratch := make([]byte, 32*1024)

	switch e.compression {
	case CompressionNone:
		if _, err := ioutil.CopyWithContext(ctx, buf, src, scratch); err != nil {
			return Block{}, err
		}
	case CompressionZstd:
		enc, err := e.getEncoder()
		if err != nil {
			return Block{}, fmt.Errorf("create zstd encoder: %w", err)
		}
		defer e.putEncoder(enc)

		enc.Reset(buf)
		if _, err := ioutil.CopyWithContext(ctx, enc, src, scratch); err != nil {
			enc.Close()
			return Block{}, err
		}
		if err := enc.Close(); err != nil {
			return Block{}, fmt.Errorf("close zstd encoder: %w", err)
		}
	default:
		return Block{}, fmt.Errorf("unknown compression algorithm: %d", e.compression)
	}

	return Block{
		Name:         name,
		Buffer:       buf,
		OriginalSize: cr.N,
		Compression:  e.compression,
		Digest:       digester.Digest(),
	}, nil
}

func (e *Encoder) getEncoder() (*zstd.Encoder, error) {
	if enc, ok := e.encoders.Get().(*zstd.Encoder); ok {
		return enc, nil
	}
	return zstd.NewWriter(io.Discard,
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
		zstd.WithEncoderLevel(e.level),
	)
}

// putEncoder detaches enc from its last buffer and returns it to the pool.
func (e *Encoder) putEncoder(enc *zstd.Encoder) {
	enc.Reset(io.Discard)
	e.encoders.Put(enc)
}
