package blobpack

import "log/slog"

// assembleConfig holds configuration for an Assembler.
type assembleConfig struct {
	workers   int
	logger    *slog.Logger
	progress  ProgressFunc
	writeOpts []WriteOption
}

// AssembleOption configures an Assembler.
type AssembleOption func(*assembleConfig)

// WithWorkers sets the number of concurrent deposits.
// Zero uses GOMAXPROCS. Values < 0 force serial writes.
func WithWorkers(n int) AssembleOption {
	return func(cfg *assembleConfig) {
		cfg.workers = n
	}
}

// WithAssembleLogger sets the logger for assembly operations.
// If not set, logging is disabled.
func WithAssembleLogger(logger *slog.Logger) AssembleOption {
	return func(cfg *assembleConfig) {
		cfg.logger = logger
	}
}

// WithProgress sets a callback that receives an event after each deposit.
func WithProgress(fn ProgressFunc) AssembleOption {
	return func(cfg *assembleConfig) {
		cfg.progress = fn
	}
}

// WithWriteOptions sets the options passed to every WriteFully call.
func WithWriteOptions(opts ...WriteOption) AssembleOption {
	return func(cfg *assembleConfig) {
		cfg.writeOpts = append(cfg.writeOpts, opts...)
	}
}
