package adapters

import (
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// LoadAdapter translates load lifecycle callbacks.
type LoadAdapter struct {
	out    *eventbridge.Producer
	mirror *StateMirror
	log    pslog.Logger
}

// NewLoadAdapter constructs a LoadAdapter.
func NewLoadAdapter(out *eventbridge.Producer, mirror *StateMirror, logger pslog.Logger) *LoadAdapter {
	return &LoadAdapter{out: out, mirror: mirror, log: orDefault(logger)}
}

// OnLoadingStateChange emits the three flags verbatim.
func (a *LoadAdapter) OnLoadingStateChange(isLoading, canGoBack, canGoForward bool) {
	if a.mirror != nil {
		a.mirror.setLoading(isLoading, canGoBack, canGoForward)
	}
	a.log.Debug("load state change", "loading", isLoading, "back", canGoBack, "forward", canGoForward)
	a.out.Send(schema.LoadingStateChanged(isLoading, canGoBack, canGoForward))
}

// OnLoadError emits LoadError. The navigation is not retried.
func (a *LoadAdapter) OnLoadError(url string, code int, text string) {
	a.log.Warn("load error", "url", url, "code", code, "text", text)
	a.out.Send(schema.LoadFailed(url, code, text))
}
