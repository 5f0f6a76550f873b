package schema

// HistoryEntry is a visited URL.
type HistoryEntry struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	VisitCount    uint32 `json:"visit_count"`
	LastVisitedMs int64  `json:"last_visited_ms"`
}

// HistoryMatch is a ranked search result.
type HistoryMatch struct {
	URL   string
	Title string
	Score float64
}

// SessionTab is a persisted tab.
type SessionTab struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	FaviconURL   string `json:"favicon_url,omitempty"`
	IsNewTabPage bool   `json:"is_new_tab_page"`
	IsPinned     bool   `json:"is_pinned"`
}

// SessionSnapshot is the persisted tab strip.
type SessionSnapshot struct {
	Tabs        []SessionTab `json:"tabs"`
	ActiveIndex int          `json:"active_index"`
}
