package schema

// LoadState is the navigation projection of a single tab.
type LoadState struct {
	URL          string
	Title        string
	IsLoading    bool
	CanGoBack    bool
	CanGoForward bool
}

// DefaultLoadState returns the state of a tab that has not heard from the engine yet.
func DefaultLoadState() LoadState {
	return LoadState{URL: NewTabURL, Title: DefaultTabTitle}
}

// TabSnapshot is a read-only view of tab state for the host UI.
type TabSnapshot struct {
	ID        TabID
	State     LoadState
	Progress  float64
	Favicon   string
	LastError *LoadError
	Active    bool
	Pinned    bool
}

// TabEventType describes what changed on a tab.
type TabEventType string

const (
	TabEventCreated     TabEventType = "created"
	TabEventClosed      TabEventType = "closed"
	TabEventActivated   TabEventType = "activated"
	TabEventNavigation  TabEventType = "navigation"
	TabEventFrameReady  TabEventType = "frame_ready"
	TabEventLoadError   TabEventType = "load_error"
	TabEventContextMenu TabEventType = "context_menu"
	TabEventFind        TabEventType = "find"
	TabEventDownload    TabEventType = "download"
	TabEventShortcut    TabEventType = "shortcut"
	TabEventPinned      TabEventType = "pinned"
)

// TabEvent is emitted to host sinks after the loop applied engine events.
type TabEvent struct {
	Type      TabEventType
	Tab       TabSnapshot
	ActiveTab TabID
	// Cause is the engine event that produced this update, zero for host-driven changes.
	Cause Event
}
