package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/blobpack"
)

// entry describes one packed file.
type entry struct {
	name         string
	offset       int64
	size         int64
	originalSize int64
	digest       digest.Digest
}

// result describes a packed data file.
type result struct {
	entries    []entry
	size       int64
	dataDigest digest.Digest
}

// pack encodes every regular file under cfg.src and writes the data file.
// The output only appears at cfg.out when every block landed and every
// buffer was released.
func pack(ctx context.Context, cfg config, logger *slog.Logger) (result, error) {
	pool := blobpack.NewPool()

	root, err := os.OpenRoot(cfg.src)
	if err != nil {
		return result{}, err
	}
	defer root.Close()

	paths, err := listFiles(root)
	if err != nil {
		return result{}, err
	}
	logger.Info("packing", "dir", cfg.src, "files", len(paths), "compression", cfg.compression.String())

	blocks, err := encodeAll(ctx, root, paths, blobpack.NewEncoder(pool, cfg.compression, blobpack.WithEncoderLogger(logger)), cfg.encoders)
	if err != nil {
		return result{}, err
	}

	placements, size, err := blobpack.PlanContiguous(0, blocks)
	if err != nil {
		releaseBlocks(blocks)
		return result{}, err
	}
	entries := make([]entry, len(blocks))
	for i, b := range blocks {
		entries[i] = entry{
			name:         b.Name,
			offset:       placements[i].Offset,
			size:         b.Size(),
			originalSize: b.OriginalSize,
			digest:       b.Digest,
		}
	}

	out, err := createOutput(cfg.out, size)
	if err != nil {
		releaseBlocks(blocks)
		return result{}, err
	}
	asm := blobpack.NewAssembler(
		blobpack.WithWorkers(cfg.workers),
		blobpack.WithAssembleLogger(logger),
	)
	if _, err := asm.Assemble(ctx, out, placements); err != nil {
		_ = out.Discard() //nolint:errcheck // best-effort cleanup
		return result{}, err
	}
	if n := pool.Outstanding(); n != 0 {
		_ = out.Discard() //nolint:errcheck // best-effort cleanup
		return result{}, fmt.Errorf("%w: %d buffers not released", blobpack.ErrReleased, n)
	}
	if err := out.Commit(); err != nil {
		return result{}, err
	}

	dataDigest, err := digestFile(cfg.out)
	if err != nil {
		return result{}, err
	}
	return result{entries: entries, size: size, dataDigest: dataDigest}, nil
}

// listFiles returns the regular files under root in path order.
// Symbolic links and other special files are skipped.
func listFiles(root *os.Root) ([]string, error) {
	var paths []string
	err := fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// encodeAll encodes paths concurrently, keeping the input order.
// On failure every block produced so far is released.
func encodeAll(ctx context.Context, root *os.Root, paths []string, enc *blobpack.Encoder, workers int) ([]blobpack.Block, error) {
	blocks := make([]blobpack.Block, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, path := range paths {
		eg.Go(func() error {
			f, err := root.Open(filepath.FromSlash(path))
			if err != nil {
				return err
			}
			defer f.Close()
			block, err := enc.Encode(ctx, path, f)
			if err != nil {
				return err
			}
			blocks[i] = block
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		releaseBlocks(blocks)
		return nil, err
	}
	return blocks, nil
}

func releaseBlocks(blocks []blobpack.Block) {
	for _, b := range blocks {
		if b.Buffer != nil {
			_ = b.Buffer.Release() //nolint:errcheck // best-effort cleanup
		}
	}
}

func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.Canonical.FromReader(f)
}
