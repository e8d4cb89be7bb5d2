package blobpack

// Compression identifies the compression algorithm used for a block.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression returns the Compression named by s.
func ParseCompression(s string) (Compression, bool) {
	switch s {
	case "none":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	default:
		return 0, false
	}
}
