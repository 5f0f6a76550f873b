package core

import (
	"context"

	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/schema"
)

// Engine drives one browser instance. Every method only queues work on the
// engine side and returns without waiting for the page; results come back as
// events through the tab's adapters.
type Engine interface {
	Navigate(url string) error
	GoBack() error
	GoForward() error
	Reload() error
	Stop() error
	Resize(width, height int, scale float64) error
	Scroll(dx, dy float64) error
	SendKey(event schema.KeyEvent) error
	Find(text string, forward, findNext bool) error
	StopFinding(clearSelection bool) error
	Edit(cmd schema.EditCommand) error
	ShowDevTools() error
	Close() error
}

// EngineRequest describes a browser to start.
type EngineRequest struct {
	TabID  schema.TabID
	URL    string
	Client *adapters.Client
}

// EngineProvider starts engines. A start failure is fatal for the tab.
type EngineProvider interface {
	Start(ctx context.Context, req EngineRequest) (Engine, error)
	Close(ctx context.Context) error
}
