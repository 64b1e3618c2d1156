package decoder

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DecodeBatch decodes independent sequences concurrently. Results keep the
// order of batch. The first error cancels the remaining work and is returned
// with the index of the failing sequence. workers <= 0 means GOMAXPROCS.
func DecodeBatch(ctx context.Context, d Decoder, batch [][]Distribution, workers int) ([]Sequence, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	slog.Debug("Decoding batch", "sequences", len(batch), "workers", workers)

	out := make([]Sequence, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, dists := range batch {
		i, dists := i, dists
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seq, err := d.Decode(dists)
			if err != nil {
				return fmt.Errorf("sequence %d: %w", i, err)
			}
			out[i] = seq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
