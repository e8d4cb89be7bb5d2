// Package blobpack deposits independently produced data blocks into one
// shared output file at precomputed, non-overlapping offsets.
//
// The package is built around two primitives:
//   - WriteFully drives a Buffer's readable bytes to an io.WriterAt at an
//     explicit offset, retrying short writes until nothing remains and
//     failing with ErrUnexpectedEndOfTarget when the target is exhausted.
//   - WithBuffer runs a unit of work with a Buffer and releases the buffer's
//     reference on every exit path, including panics.
//
// Deposit composes the two. Assembler fans many deposits out across
// workers; Encoder and PlanContiguous stand in for the compression and
// planning stages that feed it. Buffers come from a Pool whose storage is
// recycled through size-classed byte pools.
//
// Concurrent writers must target disjoint ranges. Nothing here detects
// overlap or locks the target; correctness comes from the offset plan.
package blobpack
