package core

import "pkt.systems/glass/schema"

// EventSink receives tab events from the host loop. It is called on the host
// goroutine and must not block.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
}
