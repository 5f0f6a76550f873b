package schema

// BookmarkBarVisibility controls when the bookmark bar is shown.
type BookmarkBarVisibility string

const (
	BookmarkBarAlways     BookmarkBarVisibility = "always"
	BookmarkBarNewTabOnly BookmarkBarVisibility = "new_tab_only"
)

// Bookmark is a saved URL. FolderID zero means top level.
type Bookmark struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FaviconURL string `json:"favicon_url,omitempty"`
	FolderID   uint64 `json:"folder_id,omitempty"`
}

// BookmarkFolder groups bookmarks one level deep.
type BookmarkFolder struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// BookmarkSnapshot is the persisted bookmark store.
type BookmarkSnapshot struct {
	Bookmarks    []Bookmark            `json:"bookmarks"`
	Folders      []BookmarkFolder      `json:"folders"`
	NextFolderID uint64                `json:"next_folder_id"`
	Visibility   BookmarkBarVisibility `json:"visibility,omitempty"`
}
