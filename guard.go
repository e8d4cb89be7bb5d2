package blobpack

import (
	"context"
	"errors"
	"io"
)

// WithBuffer runs body with buf and releases one reference to buf when body
// returns, fails or panics.
//
// The body's result and error are forwarded unchanged. If the release itself
// fails the *LifecycleError is joined after the body error, so the body error
// stays the primary signal and errors.As still finds the lifecycle fault.
// A nil buf is a lifecycle fault and body is not called.
func WithBuffer[T any](buf *Buffer, body func(*Buffer) (T, error)) (result T, err error) {
	if buf == nil {
		return result, &LifecycleError{Op: "acquire"}
	}
	defer func() {
		relErr := buf.Release()
		switch {
		case relErr == nil:
		case err == nil:
			err = relErr
		default:
			err = errors.Join(err, relErr)
		}
	}()
	return body(buf)
}

// Deposit writes buf to out at offset and releases buf, whatever the outcome.
// It returns the offset just past the last byte written.
func Deposit(ctx context.Context, out io.WriterAt, offset int64, buf *Buffer, opts ...WriteOption) (int64, error) {
	return WithBuffer(buf, func(b *Buffer) (int64, error) {
		return WriteFully(ctx, out, offset, b, opts...)
	})
}
