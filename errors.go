package blobpack

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedEndOfTarget is returned when the output cannot accept more
	// bytes at the requested offset. It signals an inconsistency between the
	// offset plan and the target and is never retried.
	//
	// Targets may return it (or io.EOF / io.ErrUnexpectedEOF) from WriteAt to
	// report exhaustion.
	ErrUnexpectedEndOfTarget = errors.New("blobpack: unexpected end of target")

	// ErrNoProgress is returned when a target keeps accepting zero bytes
	// beyond the configured stall limit.
	ErrNoProgress = errors.New("blobpack: no write progress")

	// ErrInvalidWrite is returned when a target reports more bytes written
	// than were requested.
	ErrInvalidWrite = errors.New("blobpack: invalid write result")

	// ErrNegativeOffset is returned when a write is requested at a negative offset.
	ErrNegativeOffset = errors.New("blobpack: negative offset")

	// ErrPlanMismatch is returned when a deposit ends somewhere other than
	// its planned end offset.
	ErrPlanMismatch = errors.New("blobpack: deposit does not match plan")

	// ErrSizeOverflow is returned when an offset or size computation overflows.
	ErrSizeOverflow = errors.New("blobpack: size overflow")

	// ErrReleased matches every *LifecycleError.
	ErrReleased = errors.New("blobpack: buffer lifecycle fault")
)

// LifecycleError reports misuse of a Buffer reference: releasing or retaining
// a buffer whose count already reached zero, or guarding a nil buffer.
//
// It is a programming defect, not an I/O failure. Use errors.As to tell it
// apart from errors returned by the unit of work.
type LifecycleError struct {
	// Op is the operation that detected the fault ("release", "retain", "acquire").
	Op string

	// Refs is the reference count observed when the fault was detected.
	Refs int32
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("blobpack: %s of buffer with %d references", e.Op, e.Refs)
}

// Is reports whether target is ErrReleased.
func (e *LifecycleError) Is(target error) bool {
	return target == ErrReleased
}
