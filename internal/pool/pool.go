// Package pool manages the fixed set of exclusive inference workers.
// Admission is the only gate in front of synthesis: a request must hold
// a Ticket before it may touch a worker, and every ticket is released
// exactly once on every exit path.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Workers are heavyweight (model weights plus an execution-provider
// handle), so the pool size is deliberately small.
const (
	MinWorkers = 1
	MaxWorkers = 8
)

// ErrClosed is returned by Acquire after the pool has shut down.
var ErrClosed = errors.New("worker pool is closed")

// Worker is one exclusive inference context.
type Worker interface {
	Close() error
}

// Pool hands out exclusive access to a fixed set of workers. Waiters
// block on an internal channel; the runtime services blocked receivers
// in arrival order, so admission is first-come-first-served.
type Pool[W Worker] struct {
	slots chan *Slot[W]
	size  int

	mu     sync.Mutex
	closed bool
	all    []*Slot[W]
}

// Slot binds a worker to its pool position.
type Slot[W Worker] struct {
	id     int
	worker W
}

// ID returns the slot's position in the pool, for logging.
func (s *Slot[W]) ID() int { return s.id }

// New builds a pool of n workers eagerly, one factory call per slot.
// n outside [MinWorkers, MaxWorkers] is rejected. If any factory call
// fails, already-built workers are closed and the error is returned;
// the caller is expected to treat that as fatal rather than run with
// fewer slots than advertised.
func New[W Worker](n int, factory func(slot int) (W, error)) (*Pool[W], error) {
	if n < MinWorkers || n > MaxWorkers {
		return nil, fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, n)
	}

	p := &Pool[W]{
		slots: make(chan *Slot[W], n),
		size:  n,
	}

	for i := 0; i < n; i++ {
		w, err := factory(i)
		if err != nil {
			for _, s := range p.all {
				_ = s.worker.Close()
			}

			return nil, fmt.Errorf("initialize worker %d: %w", i, err)
		}

		slot := &Slot[W]{id: i, worker: w}
		p.all = append(p.all, slot)
		p.slots <- slot
	}

	return p, nil
}

// Size returns the configured number of workers.
func (p *Pool[W]) Size() int { return p.size }

// Acquire blocks until a slot is free or ctx ends. The returned ticket
// grants exclusive use of one worker until Release.
func (p *Pool[W]) Acquire(ctx context.Context) (*Ticket[W], error) {
	select {
	case slot, ok := <-p.slots:
		if !ok {
			return nil, ErrClosed
		}

		return &Ticket[W]{pool: p, slot: slot}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close waits for all slots to come back, then closes every worker.
// Acquire calls after Close fail with ErrClosed.
func (p *Pool[W]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Reclaim every slot so no in-flight request loses its worker
	// mid-synthesis.
	for i := 0; i < p.size; i++ {
		<-p.slots
	}
	close(p.slots)

	var errs []error
	for _, s := range p.all {
		if err := s.worker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close worker %d: %w", s.id, err))
		}
	}

	return errors.Join(errs...)
}

// Ticket is a granted claim on one slot. Release returns the slot; it
// is safe against double invocation, but every code path holding a
// ticket must call it or the slot leaks for the process lifetime.
type Ticket[W Worker] struct {
	pool *Pool[W]
	slot *Slot[W]
	once sync.Once
}

// Worker returns the exclusively-owned inference context.
func (t *Ticket[W]) Worker() W { return t.slot.worker }

// Slot returns the slot number, for logging.
func (t *Ticket[W]) Slot() int { return t.slot.id }

// Release returns the slot to the pool. Only the first call has any
// effect.
func (t *Ticket[W]) Release() {
	t.once.Do(func() {
		// During shutdown, Close is blocked receiving this slot; the
		// channel is only closed once all n slots are back, so this
		// send can never hit a closed channel.
		t.pool.slots <- t.slot
	})
}
