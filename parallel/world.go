package parallel

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// World runs one goroutine per rank. Ranks share memory but by convention
// only touch data they own, exchanging everything else through mailboxes
// between barriers.
type World struct {
	NP     int
	logger *zap.Logger
}

func NewWorld(np int, logger *zap.Logger) *World {
	if np < 1 {
		panic(fmt.Errorf("world needs at least one rank, have %d", np))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{NP: np, logger: logger}
}

type Rank struct {
	ID      int
	NP      int
	barrier *Barrier
}

// Barrier blocks until every rank of the world has reached it
func (r Rank) Barrier(ctx context.Context) error { return r.barrier.Wait(ctx) }

// Run calls fn once per rank and waits for all of them. The first error
// cancels the context handed to the remaining ranks.
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, r Rank) error) (err error) {
	var (
		g, gctx = errgroup.WithContext(ctx)
		b       = NewBarrier(w.NP)
	)
	for n := 0; n < w.NP; n++ {
		r := Rank{ID: n, NP: w.NP, barrier: b}
		g.Go(func() error {
			if err := fn(gctx, r); err != nil {
				w.logger.Debug("rank failed", zap.Int("rank", r.ID), zap.Error(err))
				return fmt.Errorf("rank %d: %w", r.ID, err)
			}
			return nil
		})
	}
	err = g.Wait()
	return
}

// Barrier is a reusable rendezvous point for a fixed number of parties
type Barrier struct {
	mu      sync.Mutex
	parties int
	waiting int
	release chan struct{}
}

func NewBarrier(parties int) *Barrier {
	return &Barrier{parties: parties, release: make(chan struct{})}
}

func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	release := b.release
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.release = make(chan struct{})
		b.mu.Unlock()
		close(release)
		return nil
	}
	b.mu.Unlock()
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
