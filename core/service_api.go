package core

import (
	"context"

	"pkt.systems/glass/internal/contextmenu"
	"pkt.systems/glass/internal/gesture"
	"pkt.systems/glass/internal/history"
	"pkt.systems/glass/internal/render"
	"pkt.systems/glass/schema"
)

// Service is the host-side API over a set of engine tabs. State changes made
// by the engine only become visible after Tick drained them.
type Service interface {
	CreateTab(ctx context.Context, url string, activate bool) (schema.TabSnapshot, error)
	CloseTab(ctx context.Context, id schema.TabID) error
	ActivateTab(ctx context.Context, id schema.TabID) error
	ListTabs(ctx context.Context) ([]schema.TabSnapshot, schema.TabID)
	Tab(id schema.TabID) (schema.TabSnapshot, error)
	// PinTab pins or unpins a tab. Pinned tabs sort before unpinned ones.
	PinTab(ctx context.Context, id schema.TabID, pinned bool) error
	CloseOtherTabs(ctx context.Context, keep schema.TabID) (int, error)

	Navigate(ctx context.Context, id schema.TabID, input string) (string, error)
	GoBack(ctx context.Context, id schema.TabID) error
	GoForward(ctx context.Context, id schema.TabID) error
	Reload(ctx context.Context, id schema.TabID) error
	Stop(ctx context.Context, id schema.TabID) error
	Resize(ctx context.Context, width, height int, scale float64) error
	Scroll(ctx context.Context, id schema.TabID, sample gesture.Sample) (gesture.Result, error)
	Gesture() gesture.State
	SendKey(ctx context.Context, id schema.TabID, event schema.KeyEvent) error
	Find(ctx context.Context, id schema.TabID, text string, forward, findNext bool) error
	StopFinding(ctx context.Context, id schema.TabID, clearSelection bool) error
	// RunCommand runs a host command such as the ones bound to shortcuts.
	RunCommand(ctx context.Context, id schema.TabID, command string) error

	ContextMenu(id schema.TabID) (contextmenu.Menu, bool)
	SelectContextMenuItem(ctx context.Context, id schema.TabID, cmd contextmenu.Command) (contextmenu.Action, error)
	DismissContextMenu(id schema.TabID) bool

	// Frame returns the latest frame of the tab. The caller releases the snapshot.
	Frame(id schema.TabID) (render.Snapshot, error)

	SearchHistory(ctx context.Context, query string) *history.Pending
	HistoryEntries() []schema.HistoryEntry

	BookmarkTab(ctx context.Context, id schema.TabID) (schema.Bookmark, bool, error)
	RemoveBookmark(ctx context.Context, url string) error
	AddBookmarkFolder(ctx context.Context, name string) schema.BookmarkFolder
	RemoveBookmarkFolder(ctx context.Context, folder uint64) error
	MoveBookmark(ctx context.Context, url string, folder uint64) error
	SetBookmarkBarVisibility(ctx context.Context, v schema.BookmarkBarVisibility)
	BookmarkBarVisible() bool
	Bookmarks() schema.BookmarkSnapshot
	IsBookmarked(url string) bool

	RestoreSession(ctx context.Context) (int, error)
	SaveNow(ctx context.Context) error

	Tick(ctx context.Context) int
	Run(ctx context.Context) error
	Post(fn Effect)
	Close(ctx context.Context) error
}
