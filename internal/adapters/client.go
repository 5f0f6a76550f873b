package adapters

import (
	"context"

	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/internal/render"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// Producer names stamped on events.
const (
	ProducerDisplay     schema.ProducerName = "display"
	ProducerLoad        schema.ProducerName = "load"
	ProducerLifeSpan    schema.ProducerName = "lifespan"
	ProducerContextMenu schema.ProducerName = "context_menu"
	ProducerRequest     schema.ProducerName = "request"
	ProducerFind        schema.ProducerName = "find"
	ProducerKeyboard    schema.ProducerName = "keyboard"
	ProducerDownload    schema.ProducerName = "download"
	ProducerRender      schema.ProducerName = "render"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	Shortcuts   map[string]string
	DownloadDir string
	Logger      pslog.Logger
}

// Client bundles every adapter of one tab. All adapters feed the same event
// bridge and the render adapter feeds the tab's render bridge.
type Client struct {
	Display     *DisplayAdapter
	Load        *LoadAdapter
	LifeSpan    *LifeSpanAdapter
	Permission  *PermissionAdapter
	ContextMenu *ContextMenuAdapter
	Request     *RequestAdapter
	Find        *FindAdapter
	Keyboard    *KeyboardAdapter
	Download    *DownloadAdapter
	Render      *RenderAdapter

	events *eventbridge.Bridge
	frames *render.Bridge
	mirror *StateMirror
}

// NewClient wires the adapters of one tab.
func NewClient(events *eventbridge.Bridge, frames *render.Bridge, opts ClientOptions) *Client {
	logger := orDefault(opts.Logger)
	mirror := NewStateMirror()
	return &Client{
		Display:     NewDisplayAdapter(events.Producer(ProducerDisplay), mirror, logger),
		Load:        NewLoadAdapter(events.Producer(ProducerLoad), mirror, logger),
		LifeSpan:    NewLifeSpanAdapter(events.Producer(ProducerLifeSpan), logger),
		Permission:  NewPermissionAdapter(logger),
		ContextMenu: NewContextMenuAdapter(events.Producer(ProducerContextMenu), logger),
		Request:     NewRequestAdapter(events.Producer(ProducerRequest), logger),
		Find:        NewFindAdapter(events.Producer(ProducerFind)),
		Keyboard:    NewKeyboardAdapter(events.Producer(ProducerKeyboard), opts.Shortcuts, logger),
		Download:    NewDownloadAdapter(events.Producer(ProducerDownload), opts.DownloadDir, logger),
		Render:      NewRenderAdapter(events.Producer(ProducerRender), frames),
		events:      events,
		frames:      frames,
		mirror:      mirror,
	}
}

// Events returns the tab's event bridge.
func (c *Client) Events() *eventbridge.Bridge {
	return c.events
}

// Frames returns the tab's render bridge.
func (c *Client) Frames() *render.Bridge {
	return c.frames
}

// State returns the engine-side load state snapshot.
func (c *Client) State() schema.LoadState {
	return c.mirror.Snapshot()
}

func orDefault(logger pslog.Logger) pslog.Logger {
	if logger == nil {
		return pslog.Ctx(context.Background())
	}
	return logger
}
