package schema

import "time"

const (
	// DefaultViewWidth is the view width before the host reports a size.
	DefaultViewWidth = 800
	// DefaultViewHeight is the view height before the host reports a size.
	DefaultViewHeight = 600
	// DefaultScaleFactor is the device scale before the host reports one.
	DefaultScaleFactor = 1.0
	// DefaultHistoryMaxEntries caps the history store.
	DefaultHistoryMaxEntries = 2000
	// DefaultHistoryMaxResults caps a history search.
	DefaultHistoryMaxResults = 8
	// DefaultSaveDebounce delays session writes after the last change.
	DefaultSaveDebounce = 500 * time.Millisecond
	// DefaultSearchURL is used for omnibox input that is not a URL.
	DefaultSearchURL = "https://www.google.com/search?q=%s"
)

// BrowserConfig controls the host service.
type BrowserConfig struct {
	ViewWidth         int
	ViewHeight        int
	ScaleFactor       float64
	HistoryMaxEntries int
	HistoryMaxResults int
	SaveDebounce      time.Duration
	RestoreSession    bool
	SearchURL         string
	// DownloadDir receives engine downloads. Empty disables downloads.
	DownloadDir string
	// Shortcuts maps key chords such as "ctrl+t" to host command names.
	Shortcuts map[string]string
}

// NormalizeBrowserConfig fills zero values with defaults.
func NormalizeBrowserConfig(cfg BrowserConfig) BrowserConfig {
	if cfg.ViewWidth <= 0 {
		cfg.ViewWidth = DefaultViewWidth
	}
	if cfg.ViewHeight <= 0 {
		cfg.ViewHeight = DefaultViewHeight
	}
	if cfg.ScaleFactor <= 0 {
		cfg.ScaleFactor = DefaultScaleFactor
	}
	if cfg.HistoryMaxEntries <= 0 {
		cfg.HistoryMaxEntries = DefaultHistoryMaxEntries
	}
	if cfg.HistoryMaxResults <= 0 {
		cfg.HistoryMaxResults = DefaultHistoryMaxResults
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = DefaultSaveDebounce
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.Shortcuts == nil {
		cfg.Shortcuts = DefaultShortcuts()
	}
	return cfg
}

// DefaultShortcuts returns the built-in host shortcuts.
func DefaultShortcuts() map[string]string {
	return map[string]string{
		"ctrl+t":       "new_tab",
		"ctrl+w":       "close_tab",
		"ctrl+l":       "focus_address",
		"ctrl+f":       "find",
		"ctrl+r":       "reload",
		"f5":           "reload",
		"alt+left":     "back",
		"alt+right":    "forward",
		"ctrl+tab":     "next_tab",
		"ctrl+shift+t": "reopen_tab",
		"ctrl+d":       "bookmark",
	}
}
