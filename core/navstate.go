package core

import (
	"slices"

	"pkt.systems/glass/schema"
)

// NavigationState is the host-side projection of one tab, rebuilt only from
// drained engine events. Every field is last-write-wins.
type NavigationState struct {
	schema.LoadState
	Progress  float64
	LastError *schema.LoadError
	Favicons  []string
}

// NewNavigationState returns the state of a tab before the engine reported anything.
func NewNavigationState() NavigationState {
	return NavigationState{LoadState: schema.DefaultLoadState()}
}

// Apply folds ev into the state and reports whether anything visible changed.
// Events that carry no navigation data are ignored.
func (n *NavigationState) Apply(ev schema.Event) bool {
	switch ev.Type {
	case schema.EventLoadingStateChanged:
		l := ev.Loading
		changed := n.IsLoading != l.IsLoading || n.CanGoBack != l.CanGoBack || n.CanGoForward != l.CanGoForward
		n.IsLoading = l.IsLoading
		n.CanGoBack = l.CanGoBack
		n.CanGoForward = l.CanGoForward
		if l.IsLoading && n.LastError != nil {
			n.LastError = nil
			changed = true
		}
		return changed
	case schema.EventAddressChanged:
		if n.URL == ev.URL {
			return false
		}
		n.URL = ev.URL
		return true
	case schema.EventTitleChanged:
		if n.Title == ev.Title {
			return false
		}
		n.Title = ev.Title
		return true
	case schema.EventLoadingProgress:
		if n.Progress == ev.Progress {
			return false
		}
		n.Progress = ev.Progress
		return true
	case schema.EventLoadError:
		if ev.Error == nil {
			return false
		}
		loadErr := *ev.Error
		n.LastError = &loadErr
		return true
	case schema.EventFaviconURLsChanged:
		if slices.Equal(n.Favicons, ev.Favicons) {
			return false
		}
		n.Favicons = slices.Clone(ev.Favicons)
		return true
	default:
		return false
	}
}

// Favicon returns the preferred favicon URL.
func (n NavigationState) Favicon() string {
	if len(n.Favicons) == 0 {
		return ""
	}
	return n.Favicons[0]
}
