package download

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting admission gate limiting how many tasks are in their
// network phase at once.
//
// Tasks blocked in Acquire wait on the semaphore without polling and are
// released in FIFO order. Gate also records the highest occupancy it has
// seen so callers can assert the bound held.
type Gate struct {
	sem   *semaphore.Weighted
	size  int
	inUse atomic.Int64
	peak  atomic.Int64
}

// NewGate creates a Gate admitting at most n holders. n below 1 is treated as 1.
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	cur := g.inUse.Add(1)
	for {
		peak := g.peak.Load()
		if cur <= peak || g.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.inUse.Add(-1)
	g.sem.Release(1)
}

// Size returns the number of slots.
func (g *Gate) Size() int { return g.size }

// InUse returns the number of slots currently held.
func (g *Gate) InUse() int { return int(g.inUse.Load()) }

// Peak returns the highest number of slots held at the same time.
func (g *Gate) Peak() int { return int(g.peak.Load()) }
