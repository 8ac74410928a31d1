// Package worker runs independent shards of a batch on a bounded pool.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/eras/pkg/logger"
	"github.com/okian/eras/pkg/metrics"
)

// ShardFunc processes one shard. Shards must not share mutable state.
type ShardFunc func(ctx context.Context, shard int) error

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pool bounds how many shards run at once.
type Pool struct {
	size   int
	logger logger.Logger
}

// NewPool creates a pool running at most workerCount shards concurrently.
// A non-positive count falls back to runtime.NumCPU().
func NewPool(workerCount int, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{size: workerCount}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	return p
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.size }

// Run calls fn for shards 0..shards-1. The first error cancels the context
// passed to the remaining shards and is returned once all of them stopped.
func (p *Pool) Run(ctx context.Context, shards int, fn ShardFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)

	for i := 0; i < shards; i++ {
		if gctx.Err() != nil {
			break
		}
		shard := i
		g.Go(func() error {
			metrics.WorkerStarted()
			start := time.Now()
			err := fn(gctx, shard)
			metrics.WorkerFinished(time.Since(start).Seconds(), err)
			if err != nil {
				p.logger.Debug(gctx, "shard failed", logger.Int("shard", shard), logger.Error(err))
				return fmt.Errorf("shard %d: %w", shard, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ChunkCount returns how many chunks of size cover total items.
func ChunkCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ChunkBounds returns the half-open item range [lo, hi) of chunk i.
func ChunkBounds(total, size, i int) (lo, hi int) {
	lo = i * size
	hi = min(lo+size, total)
	return lo, hi
}
