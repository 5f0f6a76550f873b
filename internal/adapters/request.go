package adapters

import (
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// RequestAdapter intercepts navigations that target a new tab.
type RequestAdapter struct {
	out *eventbridge.Producer
	log pslog.Logger
}

// NewRequestAdapter constructs a RequestAdapter.
func NewRequestAdapter(out *eventbridge.Producer, logger pslog.Logger) *RequestAdapter {
	return &RequestAdapter{out: out, log: orDefault(logger)}
}

// OnOpenURLFromTab cancels new-tab dispositions and re-emits them as
// PopupRequested. Current-tab navigation proceeds.
func (a *RequestAdapter) OnOpenURLFromTab(targetURL string, disposition schema.WindowDisposition, userGesture bool) (cancel bool) {
	if !disposition.OpensNewTab() {
		return false
	}
	if targetURL != "" {
		a.log.Debug("new tab navigation redirected to host", "url", targetURL, "disposition", int(disposition), "user_gesture", userGesture)
		a.out.Send(schema.PopupRequested(targetURL))
	}
	return true
}
