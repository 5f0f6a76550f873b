package eventbus

import (
	"context"
	"sync"

	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// AllTabs subscribes to events of every tab.
const AllTabs schema.TabID = ""

// Bus fans tab events out to subscribers. Slow subscribers lose events
// instead of stalling the host loop.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.TabID]map[chan schema.TabEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.TabID]map[chan schema.TabEvent]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for one tab, or every tab with AllTabs,
// and returns a channel + cancel.
func (b *Bus) Subscribe(tabID schema.TabID) (<-chan schema.TabEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.TabEvent, b.depth)
	b.mu.Lock()
	tabSubs := b.subs[tabID]
	if tabSubs == nil {
		tabSubs = make(map[chan schema.TabEvent]struct{})
		b.subs[tabID] = tabSubs
	}
	tabSubs[ch] = struct{}{}
	count := len(tabSubs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "tab", tabID, "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[tabID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, tabID)
				}
			}
			b.mu.Unlock()
			close(ch)
			b.log.Debug("eventbus unsubscribe", "tab", tabID)
		})
	}
}

// OnTabEvent publishes a tab event.
func (b *Bus) OnTabEvent(event schema.TabEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	var subs []chan schema.TabEvent
	for sub := range b.subs[event.Tab.ID] {
		subs = append(subs, sub)
	}
	if event.Tab.ID != AllTabs {
		for sub := range b.subs[AllTabs] {
			subs = append(subs, sub)
		}
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "tab", event.Tab.ID, "type", event.Type, "count", dropped)
	}
}
