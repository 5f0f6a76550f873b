package schema

import "fmt"

// EventType identifies the event payload.
type EventType string

const (
	// EventAddressChanged carries the new main frame URL.
	EventAddressChanged EventType = "address_changed"
	// EventTitleChanged carries the new page title. An empty title is meaningful.
	EventTitleChanged EventType = "title_changed"
	// EventLoadingStateChanged carries the three load flags verbatim.
	EventLoadingStateChanged EventType = "loading_state_changed"
	// EventLoadingProgress carries a load fraction in [0,1].
	EventLoadingProgress EventType = "loading_progress"
	// EventFrameReady signals a new frame was published to the render bridge.
	EventFrameReady EventType = "frame_ready"
	// EventBrowserCreated signals the engine browser exists.
	EventBrowserCreated EventType = "browser_created"
	// EventBrowserClosed signals the engine browser is going away.
	EventBrowserClosed EventType = "browser_closed"
	// EventPopupRequested carries a URL the engine wanted to open in a new window.
	EventPopupRequested EventType = "popup_requested"
	// EventLoadError carries a failed navigation.
	EventLoadError EventType = "load_error"
	// EventContextMenuRequested carries the context for a host-rendered menu.
	EventContextMenuRequested EventType = "context_menu_requested"
	// EventFindResult carries a find-in-page update.
	EventFindResult EventType = "find_result"
	// EventFaviconURLsChanged carries the page favicon candidates.
	EventFaviconURLsChanged EventType = "favicon_urls_changed"
	// EventDownloadUpdated carries download progress.
	EventDownloadUpdated EventType = "download_updated"
	// EventShortcutPressed carries a host shortcut intercepted before the engine saw it.
	EventShortcutPressed EventType = "shortcut_pressed"
)

// LoadingFlags are the navigation flags reported together by the engine.
type LoadingFlags struct {
	IsLoading    bool `json:"is_loading"`
	CanGoBack    bool `json:"can_go_back"`
	CanGoForward bool `json:"can_go_forward"`
}

// LoadError describes a failed navigation.
type LoadError struct {
	URL  string `json:"url"`
	Code int    `json:"code"`
	Text string `json:"text"`
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load %s failed: %s (%d)", e.URL, e.Text, e.Code)
}

// FindResult is an in-page find update.
type FindResult struct {
	ID            int  `json:"id"`
	Count         int  `json:"count"`
	ActiveOrdinal int  `json:"active_ordinal"`
	Final         bool `json:"final"`
}

// DownloadState is the lifecycle position of a download.
type DownloadState string

const (
	DownloadInProgress  DownloadState = "in_progress"
	DownloadComplete    DownloadState = "complete"
	DownloadCanceled    DownloadState = "canceled"
	DownloadInterrupted DownloadState = "interrupted"
)

// DownloadUpdate is a download progress report.
type DownloadUpdate struct {
	ID                string        `json:"id"`
	URL               string        `json:"url"`
	SuggestedFileName string        `json:"suggested_file_name"`
	FullPath          string        `json:"full_path,omitempty"`
	TotalBytes        int64         `json:"total_bytes"`
	ReceivedBytes     int64         `json:"received_bytes"`
	PercentComplete   int           `json:"percent_complete"`
	State             DownloadState `json:"state"`
}

// Event is a single engine notification on its way to the host loop.
// Events are values; construct them with the helpers below and do not mutate them afterwards.
type Event struct {
	Type EventType
	// Source and Seq identify the producer and its logical sequence number.
	// They order events from one producer only.
	Source ProducerName
	Seq    uint64

	URL         string
	Title       string
	Loading     LoadingFlags
	Progress    float64
	Error       *LoadError
	ContextMenu *ContextMenuContext
	Find        *FindResult
	Favicons    []string
	Download    *DownloadUpdate
	Shortcut    string
}

// AddressChanged constructs an address change event.
func AddressChanged(url string) Event {
	return Event{Type: EventAddressChanged, URL: url}
}

// TitleChanged constructs a title change event.
func TitleChanged(title string) Event {
	return Event{Type: EventTitleChanged, Title: title}
}

// LoadingStateChanged constructs a loading state event.
func LoadingStateChanged(isLoading, canGoBack, canGoForward bool) Event {
	return Event{Type: EventLoadingStateChanged, Loading: LoadingFlags{
		IsLoading:    isLoading,
		CanGoBack:    canGoBack,
		CanGoForward: canGoForward,
	}}
}

// LoadingProgress constructs a progress event.
func LoadingProgress(fraction float64) Event {
	return Event{Type: EventLoadingProgress, Progress: fraction}
}

// FrameReady constructs a frame ready event.
func FrameReady() Event {
	return Event{Type: EventFrameReady}
}

// BrowserCreated constructs a browser created event.
func BrowserCreated() Event {
	return Event{Type: EventBrowserCreated}
}

// BrowserClosed constructs a browser closed event.
func BrowserClosed() Event {
	return Event{Type: EventBrowserClosed}
}

// PopupRequested constructs a popup request event.
func PopupRequested(url string) Event {
	return Event{Type: EventPopupRequested, URL: url}
}

// LoadFailed constructs a load error event.
func LoadFailed(url string, code int, text string) Event {
	return Event{Type: EventLoadError, URL: url, Error: &LoadError{URL: url, Code: code, Text: text}}
}

// ContextMenuRequested constructs a context menu event.
func ContextMenuRequested(ctx ContextMenuContext) Event {
	return Event{Type: EventContextMenuRequested, ContextMenu: &ctx}
}

// FindResultReceived constructs a find result event.
func FindResultReceived(result FindResult) Event {
	return Event{Type: EventFindResult, Find: &result}
}

// FaviconURLsChanged constructs a favicon event. The slice is copied.
func FaviconURLsChanged(urls []string) Event {
	return Event{Type: EventFaviconURLsChanged, Favicons: append([]string(nil), urls...)}
}

// DownloadUpdated constructs a download progress event.
func DownloadUpdated(update DownloadUpdate) Event {
	return Event{Type: EventDownloadUpdated, Download: &update}
}

// ShortcutPressed constructs a shortcut event.
func ShortcutPressed(command string) Event {
	return Event{Type: EventShortcutPressed, Shortcut: command}
}
