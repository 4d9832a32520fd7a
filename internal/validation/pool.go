package validation

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool runs validations in the background with at most n in flight.
// Submit never blocks the caller.
type Pool struct {
	sem *semaphore.Weighted
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n))}
}

// Pending is the result slot of one submitted job.
type Pending struct {
	done chan struct{}
	err  error
}

// Submit schedules fn and returns immediately. If ctx ends before a slot is
// free, the job never runs and the slot resolves with ctx's error.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) *Pending {
	pd := &Pending{done: make(chan struct{})}

	go func() {
		defer close(pd.done)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			pd.err = err
			return
		}
		defer p.sem.Release(1)

		pd.err = fn(ctx)
	}()

	return pd
}

// Done is closed once the job has resolved.
func (pd *Pending) Done() <-chan struct{} { return pd.done }

// Wait blocks until the job resolves or ctx ends.
func (pd *Pending) Wait(ctx context.Context) error {
	select {
	case <-pd.done:
		return pd.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
