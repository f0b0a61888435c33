package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/kokoro-openai-server/internal/pool"
)

type fakeWorker struct {
	id     int
	closed atomic.Bool
}

func (f *fakeWorker) Close() error {
	f.closed.Store(true)
	return nil
}

func newFakePool(t *testing.T, n int) *pool.Pool[*fakeWorker] {
	t.Helper()

	p, err := pool.New(n, func(slot int) (*fakeWorker, error) {
		return &fakeWorker{id: slot}, nil
	})
	if err != nil {
		t.Fatalf("New(%d): %v", n, err)
	}

	return p
}

func TestNew_RejectsOutOfRangeWorkerCounts(t *testing.T) {
	for _, n := range []int{0, -1, 9, 100} {
		_, err := pool.New(n, func(int) (*fakeWorker, error) {
			return &fakeWorker{}, nil
		})
		if err == nil {
			t.Errorf("New(%d): want error", n)
		}
	}
}

func TestNew_FactoryFailureClosesBuiltWorkers(t *testing.T) {
	var built []*fakeWorker

	_, err := pool.New(4, func(slot int) (*fakeWorker, error) {
		if slot == 2 {
			return nil, errors.New("weights missing")
		}
		w := &fakeWorker{id: slot}
		built = append(built, w)
		return w, nil
	})

	if err == nil {
		t.Fatal("want startup error")
	}

	if len(built) != 2 {
		t.Fatalf("want 2 workers built before failure, got %d", len(built))
	}

	for _, w := range built {
		if !w.closed.Load() {
			t.Errorf("worker %d not closed after startup failure", w.id)
		}
	}
}

func TestAcquire_NeverExceedsCapacity(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 8} {
		p := newFakePool(t, workers)

		var held atomic.Int64
		var peak atomic.Int64
		var wg sync.WaitGroup

		for i := 0; i < workers*5; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				tk, err := p.Acquire(context.Background())
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}

				now := held.Add(1)
				for {
					prev := peak.Load()
					if now <= prev || peak.CompareAndSwap(prev, now) {
						break
					}
				}

				time.Sleep(time.Millisecond)
				held.Add(-1)
				tk.Release()
			}()
		}

		wg.Wait()

		if got := peak.Load(); got > int64(workers) {
			t.Errorf("workers=%d: %d tickets held at once", workers, got)
		}

		if err := p.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
}

func TestAcquire_HonorsContextWhileWaiting(t *testing.T) {
	p := newFakePool(t, 1)
	defer p.Close()

	tk, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = p.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}

	tk.Release()
}

func TestRelease_IsIdempotentAndFreesTheSlot(t *testing.T) {
	p := newFakePool(t, 1)
	defer p.Close()

	tk, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	tk.Release()
	tk.Release() // second call must be a no-op, not a second slot

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tk2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer tk2.Release()

	// With capacity 1, a double-release would have left a phantom
	// second slot; this Acquire must block until cancel.
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer shortCancel()

	if _, err := p.Acquire(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("phantom slot detected: %v", err)
	}
}

func TestClose_WaitsForOutstandingTicketAndClosesWorkers(t *testing.T) {
	p := newFakePool(t, 2)

	tk, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Close() }()

	select {
	case <-done:
		t.Fatal("Close returned while a ticket was outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	tk.Release()

	if err := <-done; err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := p.Acquire(context.Background()); !errors.Is(err, pool.ErrClosed) {
		t.Fatalf("want ErrClosed after shutdown, got %v", err)
	}
}

func TestTicket_ExposesWorkerAndSlot(t *testing.T) {
	p := newFakePool(t, 2)
	defer p.Close()

	tk, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer tk.Release()

	if tk.Worker() == nil {
		t.Error("ticket has no worker")
	}

	if tk.Slot() != tk.Worker().id {
		t.Errorf("slot %d does not match worker id %d", tk.Slot(), tk.Worker().id)
	}
}
