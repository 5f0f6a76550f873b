package adapters

import (
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// LifeSpanAdapter handles popups and browser lifecycle.
type LifeSpanAdapter struct {
	out *eventbridge.Producer
	log pslog.Logger
}

// NewLifeSpanAdapter constructs a LifeSpanAdapter.
func NewLifeSpanAdapter(out *eventbridge.Producer, logger pslog.Logger) *LifeSpanAdapter {
	return &LifeSpanAdapter{out: out, log: orDefault(logger)}
}

// OnBeforePopup cancels every popup and hands its URL to the host.
func (a *LifeSpanAdapter) OnBeforePopup(targetURL string) (cancel bool) {
	if targetURL == "" {
		return true
	}
	a.log.Info("popup redirected to host", "url", targetURL)
	a.out.Send(schema.PopupRequested(targetURL))
	return true
}

// OnAfterCreated emits BrowserCreated.
func (a *LifeSpanAdapter) OnAfterCreated() {
	a.out.Send(schema.BrowserCreated())
}

// DoClose allows the close to proceed.
func (a *LifeSpanAdapter) DoClose() bool {
	return false
}

// OnBeforeClose emits BrowserClosed.
func (a *LifeSpanAdapter) OnBeforeClose() {
	a.out.Send(schema.BrowserClosed())
}
