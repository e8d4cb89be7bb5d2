// Command blobpack packs the regular files of a directory into one data file.
//
// Files are encoded concurrently into pooled buffers, laid out back to back
// in path order, and deposited into the output by parallel positional
// writes. One line per entry is printed: offset, stored size, original size,
// digest and path.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/meigma/blobpack"
)

type config struct {
	src         string
	out         string
	compression blobpack.Compression
	workers     int
	encoders    int
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "blobpack:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	res, err := pack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return printResult(stdout, res)
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	fs := pflag.NewFlagSet("blobpack", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: blobpack [flags] SRC_DIR OUT_FILE")
		fs.PrintDefaults()
	}

	var cfg config
	compression := fs.StringP("compression", "c", "zstd", "compression algorithm (zstd, none)")
	fs.IntVarP(&cfg.workers, "workers", "w", 0, "concurrent writes (0 = GOMAXPROCS)")
	fs.IntVar(&cfg.encoders, "encoders", runtime.GOMAXPROCS(0), "concurrent encoders")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	c, ok := blobpack.ParseCompression(*compression)
	if !ok {
		return config{}, fmt.Errorf("unknown compression: %s", *compression)
	}
	cfg.compression = c
	if fs.NArg() != 2 {
		fs.Usage()
		return config{}, errors.New("expected SRC_DIR and OUT_FILE")
	}
	cfg.src = fs.Arg(0)
	cfg.out = fs.Arg(1)
	if cfg.encoders < 1 {
		cfg.encoders = 1
	}
	return cfg, nil
}

func printResult(w io.Writer, res result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range res.entries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n", e.offset, e.size, e.originalSize, e.digest, e.name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "data %s %d bytes\n", res.dataDigest, res.size)
	return err
}
