package blobpack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"
)

// WriteFully writes every readable byte of buf to out starting at offset and
// returns the offset just past the last byte written.
//
// Each attempt hands out the remaining bytes at the current position; short
// writes advance buf and the position and the loop continues until buf is
// empty. An empty buf returns offset without touching out.
//
// A target reports exhaustion by returning a negative count or an error
// matching ErrUnexpectedEndOfTarget, io.EOF or io.ErrUnexpectedEOF. That
// fails the write immediately with ErrUnexpectedEndOfTarget: it means the
// offset plan and the target disagree, so it is never retried. Zero-byte
// attempts without an error are retried up to the stall limit (see
// WithMaxStalls), after which ErrNoProgress is returned.
//
// On failure the returned offset still marks the end of the written prefix,
// so [offset, returned) holds exactly the bytes consumed from buf. The
// region must be rewritten as a whole; partial writes are not resumable.
//
// WriteFully never releases buf. Concurrent calls must target disjoint
// ranges of out and distinct buffers; overlap is not detected.
func WriteFully(ctx context.Context, out io.WriterAt, offset int64, buf *Buffer, opts ...WriteOption) (int64, error) {
	if offset < 0 {
		return offset, fmt.Errorf("%w: %d", ErrNegativeOffset, offset)
	}
	if buf.Len() == 0 {
		return offset, nil
	}

	cfg := newWriteConfig(opts)
	stalls := 0
	for buf.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return offset, err
		}

		want := buf.Len()
		n, err := out.WriteAt(buf.Bytes(), offset)
		if n < 0 {
			return offset, fmt.Errorf("%w at offset %d", ErrUnexpectedEndOfTarget, offset)
		}
		if n > want {
			return offset, fmt.Errorf("%w: %d of %d bytes at offset %d", ErrInvalidWrite, n, want, offset)
		}
		if n > 0 {
			buf.Skip(n)
			offset += int64(n)
			stalls = 0
		}

		if err != nil {
			if errors.Is(err, ErrUnexpectedEndOfTarget) {
				return offset, fmt.Errorf("blobpack: write at offset %d: %w", offset, err)
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return offset, fmt.Errorf("%w at offset %d: %w", ErrUnexpectedEndOfTarget, offset, err)
			}
			if errors.Is(err, io.ErrShortWrite) && n > 0 {
				continue
			}
			return offset, fmt.Errorf("blobpack: write at offset %d: %w", offset, err)
		}

		if n == 0 {
			stalls++
			if stalls > cfg.maxStalls {
				return offset, fmt.Errorf("%w: %d empty writes at offset %d", ErrNoProgress, cfg.maxStalls, offset)
			}
			cfg.log().Debug("stalled write", "offset", offset, "remaining", want, "stalls", stalls)
			if err := stallWait(ctx, cfg.stallBackoff); err != nil {
				return offset, err
			}
		}
	}
	return offset, nil
}

// stallWait pauses between zero-progress attempts.
func stallWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
