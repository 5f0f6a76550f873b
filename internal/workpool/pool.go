package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"pkt.systems/pslog"
)

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("workpool closed")

// Task is a unit of background work. Its error is logged, never propagated.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

// Pool runs tasks off the host goroutine with bounded parallelism.
// Submit never blocks; tasks wait in an unbounded queue until a slot frees.
type Pool struct {
	mu     sync.Mutex
	queue  []job
	closed bool
	wake   chan struct{}

	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    pslog.Logger
}

// New starts a pool with at most limit concurrent tasks. limit <= 0 uses GOMAXPROCS.
func New(ctx context.Context, limit int) *Pool {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p := &Pool{
		wake:   make(chan struct{}, 1),
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    pslog.Ctx(ctx),
	}
	p.group.SetLimit(limit)
	go p.dispatch()
	return p
}

// Submit queues a named task.
func (p *Pool) Submit(name string, fn Task) error {
	if fn == nil {
		return fmt.Errorf("workpool task %q is nil", name)
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.queue = append(p.queue, job{name: name, fn: fn})
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued, not yet started tasks.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pool) dispatch() {
	defer close(p.done)
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			<-p.wake
			continue
		}
		next := p.queue[0]
		p.queue[0] = job{}
		p.queue = p.queue[1:]
		p.mu.Unlock()
		p.group.Go(func() error {
			p.run(next)
			return nil
		})
	}
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("workpool task panicked", "task", j.name, "panic", fmt.Sprint(r))
		}
	}()
	if err := j.fn(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Warn("workpool task failed", "task", j.name, "err", err)
	}
}

// Close stops accepting tasks, runs what is queued and waits for completion.
// Cancelling ctx cancels the tasks' context and returns early.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
	finished := make(chan struct{})
	go func() {
		<-p.done
		_ = p.group.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
