package glass

import (
	"pkt.systems/glass/core"
	"pkt.systems/glass/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnTabEvent(event schema.TabEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTabEvent(event)
	}
}

// fanout returns a single sink for the non-nil sinks, or nil when none remain.
func fanout(sinks ...core.EventSink) core.EventSink {
	kept := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return eventFanout{sinks: kept}
	}
}
