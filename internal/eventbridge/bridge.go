package eventbridge

import (
	"context"
	"sync"
	"sync/atomic"

	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// DefaultHighWater is the queue depth above which the bridge warns.
const DefaultHighWater = 4096

// Bridge funnels engine events from any goroutine to the single host consumer.
// Sends never block and never fail while the bridge is open. The queue is unbounded.
type Bridge struct {
	mu        sync.Mutex
	queue     []schema.Event
	closed    bool
	ready     chan struct{}
	done      chan struct{}
	highWater int
	above     bool
	log       pslog.Logger
}

// Producer stamps events with its name and a per-producer sequence number.
type Producer struct {
	name   schema.ProducerName
	seq    atomic.Uint64
	bridge *Bridge
}

// New constructs an open Bridge.
func New(logger pslog.Logger) *Bridge {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bridge{
		ready:     make(chan struct{}, 1),
		done:      make(chan struct{}),
		highWater: DefaultHighWater,
		log:       logger,
	}
}

// SetHighWater changes the warning threshold. Values below 1 disable the warning.
func (b *Bridge) SetHighWater(depth int) {
	b.mu.Lock()
	b.highWater = depth
	b.mu.Unlock()
}

// Producer returns a sender handle for the named producer.
func (b *Bridge) Producer(name schema.ProducerName) *Producer {
	return &Producer{name: name, bridge: b}
}

// Name returns the producer name.
func (p *Producer) Name() schema.ProducerName {
	if p == nil {
		return ""
	}
	return p.name
}

// Send stamps and enqueues the event. It reports false when the bridge is closed.
func (p *Producer) Send(event schema.Event) bool {
	if p == nil || p.bridge == nil {
		return false
	}
	event.Source = p.name
	event.Seq = p.seq.Add(1)
	return p.bridge.Send(event)
}

// Send enqueues the event. After Close the event is dropped.
func (b *Bridge) Send(event schema.Event) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Debug("event bridge dropped event", "type", event.Type, "source", event.Source, "err", schema.ErrBridgeClosed)
		return false
	}
	b.queue = append(b.queue, event)
	depth := len(b.queue)
	highWater := b.highWater
	crossed := false
	if b.highWater > 0 && depth > b.highWater && !b.above {
		b.above = true
		crossed = true
	}
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
	if crossed {
		b.log.Warn("event bridge above high water", "depth", depth, "high_water", highWater)
	}
	return true
}

// Drain returns every queued event in enqueue order and empties the queue.
// Only the host consumer may call Drain.
func (b *Bridge) Drain() []schema.Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	events := b.queue
	b.queue = nil
	b.above = false
	b.mu.Unlock()
	select {
	case <-b.ready:
	default:
	}
	return events
}

// Ready signals that events may be queued. Consumers must still Drain to find out.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Wait blocks until events are queued, the context ends or the bridge closes.
func (b *Bridge) Wait(ctx context.Context) error {
	if b.Len() > 0 {
		return nil
	}
	select {
	case <-b.ready:
		// Put the signal back for Drain, the consumer has not emptied the queue yet.
		select {
		case b.ready <- struct{}{}:
		default:
		}
		return nil
	case <-b.done:
		if b.Len() > 0 {
			return nil
		}
		return schema.ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the current queue depth.
func (b *Bridge) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Closed reports whether Close was called.
func (b *Bridge) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close stops accepting events. Already queued events stay drainable.
func (b *Bridge) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)
}
