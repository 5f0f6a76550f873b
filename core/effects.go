package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Effect is work deferred to the host goroutine.
type Effect func(ctx context.Context)

// effectQueue collects effects posted from any goroutine. Effects posted while
// the queue runs wait for the next run.
type effectQueue struct {
	mu      sync.Mutex
	pending []Effect
	wake    chan struct{}
}

func newEffectQueue() *effectQueue {
	return &effectQueue{wake: make(chan struct{}, 1)}
}

func (q *effectQueue) post(fn Effect) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *effectQueue) run(ctx context.Context) int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range batch {
		fn(ctx)
	}
	return len(batch)
}

func (q *effectQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

const (
	timerPending int32 = iota
	timerRan
	timerStopped
)

// hostScheduler delivers timer callbacks through the effect queue so they run
// on the host goroutine.
type hostScheduler struct {
	post func(Effect)
	lock sync.Locker
}

func (h hostScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	var state atomic.Int32
	timer := time.AfterFunc(d, func() {
		h.post(func(context.Context) {
			if !state.CompareAndSwap(timerPending, timerRan) {
				return
			}
			h.lock.Lock()
			defer h.lock.Unlock()
			fn()
		})
	})
	return func() bool {
		timer.Stop()
		return state.CompareAndSwap(timerPending, timerStopped)
	}
}
