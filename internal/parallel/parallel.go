// Package parallel splits index ranges across goroutines.
//
// Graphs are single-goroutine objects, so callers that fan work out give every worker its own
// replica (see train.Evaluate) and use ForWorkers, which passes the worker index to the body.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// WithWorkers returns a config using exactly workers goroutines (sequential for workers <= 1).
func WithWorkers(workers int) Config {
	return Config{
		Enabled:      workers > 1,
		NumWorkers:   max(workers, 1),
		MinChunkSize: 1,
	}
}

// Range is the half-open index range [Start, End).
type Range struct {
	Start, End int
}

// Len returns End - Start.
func (r Range) Len() int {
	return r.End - r.Start
}

// Chunks splits [0, n) into contiguous ranges, at most one per worker and each at least
// MinChunkSize long (except when n itself is smaller). Disabled configs yield a single range.
func Chunks(n int, cfg Config) []Range {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return []Range{{0, n}}
	}
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	ranges := make([]Range, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		ranges = append(ranges, Range{start, min(start+chunkSize, n)})
	}
	return ranges
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	_ = ForWorkers(context.Background(), n, cfg, func(_ context.Context, _ int, r Range) error {
		for i := r.Start; i < r.End; i++ {
			f(i)
		}
		return nil
	})
}

// ForWorkers runs f once per chunk of [0, n) (see Chunks), each in its own goroutine, passing
// the chunk's worker index in [0, len(Chunks)). It returns the first error; the context given to
// f is cancelled when any call fails.
func ForWorkers(ctx context.Context, n int, cfg Config, f func(ctx context.Context, worker int, r Range) error) error {
	ranges := Chunks(n, cfg)
	if len(ranges) == 1 {
		return f(ctx, 0, ranges[0])
	}
	g, ctx := errgroup.WithContext(ctx)
	for worker, r := range ranges {
		g.Go(func() error {
			return f(ctx, worker, r)
		})
	}
	return g.Wait()
}
