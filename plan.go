package blobpack

import (
	"fmt"

	"github.com/meigma/blobpack/internal/sizing"
)

// Placement pairs a buffer with the absolute offset it must land at.
type Placement struct {
	// Name identifies the block in logs and errors.
	Name string

	// Offset is the absolute byte offset of the first byte.
	Offset int64

	// Buffer holds the bytes to write. Assemble releases it.
	Buffer *Buffer
}

// End returns the offset just past the placement's last byte.
func (p Placement) End() int64 {
	return p.Offset + int64(p.Buffer.Len())
}

// PlanContiguous lays blocks out back to back starting at base, in the order
// given, and returns the placements plus the end offset of the last block.
//
// An empty block takes the current offset without advancing it, so the next
// block starts at the same position. Buffers are transferred to the
// placements; no reference is added or dropped.
func PlanContiguous(base int64, blocks []Block) ([]Placement, int64, error) {
	if base < 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrNegativeOffset, base)
	}
	placements := make([]Placement, 0, len(blocks))
	offset := base
	for _, block := range blocks {
		if block.Buffer == nil {
			return nil, 0, fmt.Errorf("plan %s: %w", block.Name, &LifecycleError{Op: "acquire"})
		}
		placements = append(placements, Placement{
			Name:   block.Name,
			Offset: offset,
			Buffer: block.Buffer,
		})
		next, ok := sizing.AddInt64(offset, block.Size())
		if !ok {
			return nil, 0, fmt.Errorf("plan %s: %w", block.Name, ErrSizeOverflow)
		}
		offset = next
	}
	return placements, offset, nil
}
