package blobpack

// ProgressEvent represents a progress update while blocks are produced and deposited.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Name is the block currently being processed, if applicable.
	Name string

	// BytesDone is the number of bytes completed in the current stage.
	BytesDone int64

	// BytesTotal is the total bytes for the current stage.
	// Zero indicates the total is unknown.
	BytesTotal int64

	// BlocksDone is the number of blocks completed.
	BlocksDone int

	// BlocksTotal is the total number of blocks.
	// Zero indicates the total is unknown.
	BlocksTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

const (
	// StageEncoding indicates block payloads are being compressed into buffers.
	StageEncoding ProgressStage = iota

	// StageWriting indicates buffers are being deposited into the output.
	StageWriting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageEncoding:
		return "encoding"
	case StageWriting:
		return "writing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
