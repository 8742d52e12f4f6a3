package source

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/baxromumarov/rx"
)

// Lines emits every line read from r, without the line terminator, and
// completes at end of input. A read error fails the stream.
//
// An io.Reader can only be consumed once: a second subscription continues
// where the first one stopped. Use [File], or wrap the call in [rx.Defer],
// to open a fresh reader per subscription. Honours [WithMaxLineSize].
func Lines(r io.Reader, opts ...Option) *rx.Observable[string] {
	cfg := newConfig(opts)
	return rx.Create(func(ctx context.Context, emit rx.Observer[string]) error {
		return scanLines(ctx, r, cfg, emit)
	}, rx.WithName("lines"), rx.WithLogger(cfg.logger))
}

// File opens path on every subscription and emits its lines. The file is
// closed when the subscription ends. Honours [WithMaxLineSize] and
// [WithLogger].
func File(path string, opts ...Option) *rx.Observable[string] {
	cfg := newConfig(opts)
	return rx.Create(func(ctx context.Context, emit rx.Observer[string]) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		cfg.logger.WithField("path", path).Debug("source: file opened")
		return scanLines(ctx, f, cfg, emit)
	}, rx.WithName("file"), rx.WithLogger(cfg.logger))
}

func scanLines(ctx context.Context, r io.Reader, cfg config, emit rx.Observer[string]) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), cfg.maxLine)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}
