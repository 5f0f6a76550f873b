package schema

import "errors"

var (
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrNoTabs indicates no tabs exist.
	ErrNoTabs = errors.New("no tabs")
	// ErrInvalidURL indicates navigation input could not be turned into a URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrEngineUnavailable indicates no engine provider is configured.
	ErrEngineUnavailable = errors.New("engine not configured")
	// ErrBridgeClosed indicates the event bridge consumer is gone.
	ErrBridgeClosed = errors.New("event bridge closed")
	// ErrInvalidFrame indicates a frame failed validation.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrNoContextMenu indicates no context menu is pending for the tab.
	ErrNoContextMenu = errors.New("no pending context menu")
	// ErrBookmarkNotFound indicates no bookmark exists for the URL.
	ErrBookmarkNotFound = errors.New("bookmark not found")
	// ErrFolderNotFound indicates the bookmark folder does not exist.
	ErrFolderNotFound = errors.New("bookmark folder not found")
	// ErrServiceClosed indicates the host service was closed.
	ErrServiceClosed = errors.New("service closed")
)
