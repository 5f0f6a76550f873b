package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTasksWithLimit(t *testing.T) {
	pool := New(context.Background(), 2)
	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := pool.Submit("work", func(ctx context.Context) error {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
	if err := pool.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSubmitDoesNotBlockWhenSaturated(t *testing.T) {
	pool := New(context.Background(), 1)
	release := make(chan struct{})
	_ = pool.Submit("block", func(ctx context.Context) error {
		<-release
		return nil
	})
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = pool.Submit("queued", func(ctx context.Context) error { return nil })
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("submit blocked on a saturated pool")
	}
	close(release)
	if err := pool.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if pool.Pending() != 0 {
		t.Fatalf("expected queue drained on close, got %d", pool.Pending())
	}
}

func TestSubmitAfterCloseFails(t *testing.T) {
	pool := New(context.Background(), 1)
	if err := pool.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := pool.Submit("late", func(ctx context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseHonoursContext(t *testing.T) {
	pool := New(context.Background(), 1)
	started := make(chan struct{})
	_ = pool.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := pool.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPanickingTaskDoesNotKillPool(t *testing.T) {
	pool := New(context.Background(), 1)
	_ = pool.Submit("boom", func(ctx context.Context) error { panic("boom") })
	ran := make(chan struct{})
	_ = pool.Submit("after", func(ctx context.Context) error {
		close(ran)
		return nil
	})
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("pool stopped after panic")
	}
	_ = pool.Close(context.Background())
}
