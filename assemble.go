package blobpack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// AssembleStats summarizes an assembly.
type AssembleStats struct {
	// Blocks is the number of placements deposited successfully.
	Blocks int

	// Bytes is the number of bytes written by successful deposits.
	Bytes int64

	// End is the largest end offset reached by a successful deposit.
	End int64
}

// Assembler deposits many placements into one output concurrently.
//
// Each placement goes through Deposit, so its buffer is released exactly
// once whether the write succeeds, fails or never starts because an earlier
// placement failed. Placements must cover disjoint ranges; overlap is not
// detected.
type Assembler struct {
	cfg assembleConfig
}

// NewAssembler creates an Assembler with the given options.
func NewAssembler(opts ...AssembleOption) *Assembler {
	cfg := assembleConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Assembler{cfg: cfg}
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Assembler) log() *slog.Logger {
	if a.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.cfg.logger
}

// workerCount determines the number of concurrent deposits.
func (a *Assembler) workerCount(n int) int {
	workers := a.cfg.workers
	if workers < 0 {
		return 1
	}
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return max(min(workers, n), 1)
}

// Assemble writes every placement to out at its offset.
//
// The first failure cancels the remaining deposits and is returned; the
// output must then be treated as invalid. All buffers are released before
// Assemble returns.
func (a *Assembler) Assemble(ctx context.Context, out io.WriterAt, placements []Placement) (AssembleStats, error) {
	var (
		mu    sync.Mutex
		stats AssembleStats
		total int64
	)
	for _, p := range placements {
		if p.Buffer != nil {
			total += int64(p.Buffer.Len())
		}
	}

	workers := a.workerCount(len(placements))
	a.log().Info("assembling", "blocks", len(placements), "bytes", total, "workers", workers)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, p := range placements {
		eg.Go(func() error {
			var size int64
			if p.Buffer != nil {
				size = int64(p.Buffer.Len())
			}
			end, err := Deposit(ctx, out, p.Offset, p.Buffer, a.cfg.writeOpts...)
			if err != nil {
				return fmt.Errorf("assemble %s at offset %d: %w", p.Name, p.Offset, err)
			}
			if want := p.Offset + size; end != want {
				return fmt.Errorf("assemble %s: %w: ended at %d, planned %d", p.Name, ErrPlanMismatch, end, want)
			}
			a.log().Debug("deposited block", "name", p.Name, "offset", p.Offset, "size", size)

			mu.Lock()
			stats.Blocks++
			stats.Bytes += size
			stats.End = max(stats.End, end)
			event := ProgressEvent{
				Stage:       StageWriting,
				Name:        p.Name,
				BytesDone:   stats.Bytes,
				BytesTotal:  total,
				BlocksDone:  stats.Blocks,
				BlocksTotal: len(placements),
			}
			mu.Unlock()

			if a.cfg.progress != nil {
				a.cfg.progress(event)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		a.log().Debug("assembly failed", "blocks_done", stats.Blocks, "error", err)
		return stats, err
	}

	a.log().Info("assembled", "blocks", stats.Blocks, "bytes", stats.Bytes, "end", stats.End)
	return stats, nil
}
