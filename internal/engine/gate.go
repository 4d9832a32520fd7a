package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate bounds how many requests are in flight at once.
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
}

type semGate struct {
	sem *semaphore.Weighted
}

// NewGate returns a Gate admitting at most n holders. n < 1 is treated as 1.
func NewGate(n int) Gate {
	if n < 1 {
		n = 1
	}
	return &semGate{sem: semaphore.NewWeighted(int64(n))}
}

func (g *semGate) Acquire(ctx context.Context) error { return g.sem.Acquire(ctx, 1) }
func (g *semGate) Release()                          { g.sem.Release(1) }
