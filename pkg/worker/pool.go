package worker

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool runs indexed tasks in sequential batches.
// Each batch runs at most Size tasks concurrently, and the pool pauses
// for Delay between batches. This bounds the number of outstanding requests
// against a rate-limited upstream.
type Pool struct {
	Size  int
	Delay time.Duration
	Name  string // Used as the log prefix
}

// NewPool creates a new batch pool
func NewPool(name string, size int, delay time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{Size: size, Delay: delay, Name: name}
}

// Run calls task for every index in [0, n).
// Task failures are the task's own business; Run only reports cancellation,
// in which case the remaining batches are skipped.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	size := p.Size
	if size < 1 {
		size = 1
	}

	batches := (n + size - 1) / size

	for start := 0; start < n; start += size {
		if start > 0 {
			if err := sleep(ctx, p.Delay); err != nil {
				log.Printf("%s: stopping after %d of %d batches: %v", p.name(), start/size, batches, err)
				return err
			}
		}

		end := min(start+size, n)

		var g errgroup.Group
		g.SetLimit(size)

		for i := start; i < end; i++ {
			g.Go(func() error {
				task(ctx, i)
				return nil
			})
		}

		g.Wait()
	}

	return ctx.Err()
}

func (p *Pool) name() string {
	if p.Name == "" {
		return "Pool"
	}
	return p.Name
}

// sleep pauses for d, returning early with the context error on cancellation
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
