package subarray

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// pool runs a bounded number of jobs concurrently and waits for all of
// them, the same fan-out/barrier shape the teacher's build scheduler used
// for independent build jobs (errgroup.WithContext plus a fixed-size
// semaphore), generalized here to independent per-chunk jobs (spec.md §5:
// "operations on different chunk keys are independent").
type pool struct {
	g   *errgroup.Group
	sem chan struct{}
}

// newPool creates a pool bounded to n concurrent jobs. n <= 0 is treated
// as 1, matching the n_threads default of spec.md §5.
func newPool(ctx context.Context, n int) (*pool, context.Context) {
	if n <= 0 {
		n = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	return &pool{g: g, sem: make(chan struct{}, n)}, gctx
}

// goFunc submits fn to run once a slot is free. fn's error, if any,
// cancels the pool's context and is collected by wait.
func (p *pool) goFunc(fn func() error) {
	p.g.Go(func() error {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		return fn()
	})
}

// wait blocks until every submitted job has returned, propagating the
// first error encountered (if any).
func (p *pool) wait() error {
	return p.g.Wait()
}
