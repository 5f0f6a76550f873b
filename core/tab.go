package core

import (
	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/internal/render"
	"pkt.systems/glass/schema"
)

// tab tracks the host side of a single browser.
type tab struct {
	ID     schema.TabID
	nav    NavigationState
	engine Engine
	client *adapters.Client
	events *eventbridge.Bridge
	frames *render.Bridge
	find   *schema.FindResult
	pinned bool
	// recorded is the URL whose settled load was last counted in history.
	recorded string
}

// Snapshot returns a transport-friendly view of the tab.
func (t *tab) Snapshot(active bool) schema.TabSnapshot {
	var lastErr *schema.LoadError
	if t.nav.LastError != nil {
		copied := *t.nav.LastError
		lastErr = &copied
	}
	return schema.TabSnapshot{
		ID:        t.ID,
		State:     t.nav.LoadState,
		Progress:  t.nav.Progress,
		Favicon:   t.nav.Favicon(),
		LastError: lastErr,
		Active:    active,
		Pinned:    t.pinned,
	}
}

func (t *tab) close() {
	t.events.Close()
	t.frames.Close()
}
