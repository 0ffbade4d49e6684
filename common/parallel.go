package common

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ThreadCount resolves a thread hint; zero or negative means GOMAXPROCS.
func ThreadCount(hint int) int {
	if hint <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return hint
}

// BatchCount returns how many batches of batchSize cover n items.
func BatchCount(n, batchSize int) int {
	if n <= 0 {
		return 0
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return (n + batchSize - 1) / batchSize
}

// ParallelFor runs fn over [0,n) split into batches of batchSize, at most threads at once.
// A single batch runs inline. The first error cancels the context handed to the
// remaining batches and is returned.
func ParallelFor(ctx context.Context, n, batchSize, threads int, fn func(ctx context.Context, begin, end int) error) error {
	batches := BatchCount(n, batchSize)
	if batches == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if batches == 1 {
		return fn(ctx, 0, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ThreadCount(threads))
	for b := 0; b < batches; b++ {
		begin := b * batchSize
		end := min(begin+batchSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, begin, end)
		})
	}
	return g.Wait()
}
