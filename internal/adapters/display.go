package adapters

import (
	"math"

	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// DisplayAdapter translates address, title, progress and favicon callbacks.
type DisplayAdapter struct {
	out    *eventbridge.Producer
	mirror *StateMirror
	log    pslog.Logger
}

// NewDisplayAdapter constructs a DisplayAdapter.
func NewDisplayAdapter(out *eventbridge.Producer, mirror *StateMirror, logger pslog.Logger) *DisplayAdapter {
	return &DisplayAdapter{out: out, mirror: mirror, log: orDefault(logger)}
}

// OnAddressChange emits AddressChanged for non-empty URLs.
func (a *DisplayAdapter) OnAddressChange(url string) {
	if url == "" {
		return
	}
	if a.mirror != nil {
		a.mirror.setURL(url)
	}
	a.out.Send(schema.AddressChanged(url))
}

// OnTitleChange always emits TitleChanged; an empty title marks an untitled page.
func (a *DisplayAdapter) OnTitleChange(title string) {
	if a.mirror != nil {
		a.mirror.setTitle(title)
	}
	a.out.Send(schema.TitleChanged(title))
}

// OnLoadingProgressChange emits the progress clamped to [0,1].
func (a *DisplayAdapter) OnLoadingProgressChange(progress float64) {
	switch {
	case math.IsNaN(progress):
		return
	case progress < 0:
		progress = 0
	case progress > 1:
		progress = 1
	}
	a.out.Send(schema.LoadingProgress(progress))
}

// OnFaviconURLChange emits the favicon candidate list.
func (a *DisplayAdapter) OnFaviconURLChange(urls []string) {
	a.out.Send(schema.FaviconURLsChanged(urls))
}

// OnFullscreenModeChange is informational. It reports true so content-level
// fullscreen stays inside the view.
func (a *DisplayAdapter) OnFullscreenModeChange(fullscreen bool) bool {
	a.log.Trace("display fullscreen change", "fullscreen", fullscreen)
	return true
}
