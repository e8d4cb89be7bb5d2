package blobpack

import (
	"log/slog"
	"time"
)

// DefaultMaxStalls is the number of consecutive zero-byte transfers WriteFully
// tolerates before giving up with ErrNoProgress.
const DefaultMaxStalls = 100

// writeConfig holds configuration for WriteFully.
type writeConfig struct {
	maxStalls    int
	stallBackoff time.Duration
	logger       *slog.Logger
}

// WriteOption configures WriteFully.
type WriteOption func(*writeConfig)

// WithMaxStalls sets how many consecutive zero-byte transfers are retried.
// Values < 1 use DefaultMaxStalls.
func WithMaxStalls(n int) WriteOption {
	return func(cfg *writeConfig) {
		cfg.maxStalls = n
	}
}

// WithStallBackoff sets a pause between zero-byte transfers.
// Zero yields the processor instead of sleeping.
func WithStallBackoff(d time.Duration) WriteOption {
	return func(cfg *writeConfig) {
		cfg.stallBackoff = d
	}
}

// WithWriteLogger sets the logger for write diagnostics.
// If not set, logging is disabled.
func WithWriteLogger(logger *slog.Logger) WriteOption {
	return func(cfg *writeConfig) {
		cfg.logger = logger
	}
}

func newWriteConfig(opts []WriteOption) writeConfig {
	cfg := writeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxStalls < 1 {
		cfg.maxStalls = DefaultMaxStalls
	}
	return cfg
}

// log returns the logger, falling back to a discard logger if nil.
func (cfg *writeConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}
