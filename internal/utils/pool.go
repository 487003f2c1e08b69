package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds how many long-running calls (generation, search, lookup) run at once across
// the whole process. Request handlers block on Go while the pool is saturated.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Size() int { return p.size }

// Go runs fn on a pooled slot and waits for it.
func (p *Pool) Go(ctx context.Context, fn func(context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// Each runs fn for every index in [0, n) on pooled slots. Results must be written by index;
// fn never shares mutable state across indexes. The first returned error cancels the rest.
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		if err := p.sem.Acquire(egCtx, 1); err != nil {
			// Acquire only fails once egCtx is done; Wait reports the cause.
			break
		}
		eg.Go(func() error {
			defer p.sem.Release(1)
			return fn(egCtx, i)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
