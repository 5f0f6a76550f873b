package adapters

import (
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
)

// FindAdapter forwards find-in-page results.
type FindAdapter struct {
	out *eventbridge.Producer
}

// NewFindAdapter constructs a FindAdapter.
func NewFindAdapter(out *eventbridge.Producer) *FindAdapter {
	return &FindAdapter{out: out}
}

// OnFindResult emits FindResult.
func (a *FindAdapter) OnFindResult(id, count, activeOrdinal int, final bool) {
	a.out.Send(schema.FindResultReceived(schema.FindResult{
		ID:            id,
		Count:         count,
		ActiveOrdinal: activeOrdinal,
		Final:         final,
	}))
}
