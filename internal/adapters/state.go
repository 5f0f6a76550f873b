package adapters

import (
	"sync"

	"pkt.systems/glass/schema"
)

// StateMirror is the engine-side copy of a tab's load state.
// Adapters update it under a short lock; the host reads snapshots.
type StateMirror struct {
	mu    sync.Mutex
	state schema.LoadState
}

// NewStateMirror returns a mirror with default state.
func NewStateMirror() *StateMirror {
	return &StateMirror{state: schema.DefaultLoadState()}
}

// Snapshot returns a copy of the mirrored state.
func (m *StateMirror) Snapshot() schema.LoadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *StateMirror) setLoading(isLoading, canGoBack, canGoForward bool) {
	m.mu.Lock()
	m.state.IsLoading = isLoading
	m.state.CanGoBack = canGoBack
	m.state.CanGoForward = canGoForward
	m.mu.Unlock()
}

func (m *StateMirror) setURL(url string) {
	m.mu.Lock()
	m.state.URL = url
	m.mu.Unlock()
}

func (m *StateMirror) setTitle(title string) {
	m.mu.Lock()
	m.state.Title = title
	m.mu.Unlock()
}
