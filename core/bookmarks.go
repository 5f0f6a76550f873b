package core

import (
	"context"

	"pkt.systems/glass/internal/logx"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// BookmarkTab bookmarks the page shown in tab id, or the active tab when id
// is empty. It reports false when the page was already bookmarked.
func (s *service) BookmarkTab(ctx context.Context, id schema.TabID) (schema.Bookmark, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.Bookmark{}, false, schema.ErrServiceClosed
	}
	if id == "" {
		id = s.active
	}
	t := s.tabs[id]
	if t == nil {
		s.mu.Unlock()
		return schema.Bookmark{}, false, schema.ErrTabNotFound
	}
	bookmark := schema.Bookmark{URL: t.nav.URL, Title: t.nav.Title, FaviconURL: t.nav.Favicon()}
	s.mu.Unlock()
	if bookmark.Title == schema.DefaultTabTitle {
		bookmark.Title = ""
	}

	if bookmark.URL == schema.NewTabURL {
		return bookmark, false, nil
	}
	added, err := s.bookmarks.Add(bookmark)
	if err != nil || !added {
		if existing, ok := s.bookmarks.Find(bookmark.URL); ok {
			bookmark = existing
		}
		return bookmark, false, err
	}
	s.bookmarksChanged()
	logx.WithURL(logx.WithTab(ctx, id), bookmark.URL).Info("service bookmark added")
	return bookmark, true, nil
}

// RemoveBookmark deletes the bookmark for url.
func (s *service) RemoveBookmark(ctx context.Context, url string) error {
	if !s.bookmarks.Remove(url) {
		return schema.ErrBookmarkNotFound
	}
	s.bookmarksChanged()
	pslog.Ctx(ctx).Info("service bookmark removed", "url", url)
	return nil
}

// AddBookmarkFolder creates a bookmark folder.
func (s *service) AddBookmarkFolder(ctx context.Context, name string) schema.BookmarkFolder {
	folder := s.bookmarks.AddFolder(name)
	s.bookmarksChanged()
	pslog.Ctx(ctx).Info("service bookmark folder added", "folder", folder.ID, "name", name)
	return folder
}

// RemoveBookmarkFolder deletes a folder and moves its bookmarks to the top level.
func (s *service) RemoveBookmarkFolder(ctx context.Context, folder uint64) error {
	if !s.bookmarks.RemoveFolder(folder) {
		return schema.ErrFolderNotFound
	}
	s.bookmarksChanged()
	pslog.Ctx(ctx).Info("service bookmark folder removed", "folder", folder)
	return nil
}

// MoveBookmark moves the bookmark for url into folder, zero being the top level.
func (s *service) MoveBookmark(ctx context.Context, url string, folder uint64) error {
	if err := s.bookmarks.Move(url, folder); err != nil {
		return err
	}
	s.bookmarksChanged()
	pslog.Ctx(ctx).Debug("service bookmark moved", "url", url, "folder", folder)
	return nil
}

func (s *service) SetBookmarkBarVisibility(ctx context.Context, v schema.BookmarkBarVisibility) {
	s.bookmarks.SetVisibility(v)
	s.bookmarksChanged()
	pslog.Ctx(ctx).Debug("service bookmark bar visibility", "visibility", v)
}

// BookmarkBarVisible reports whether the bar shows above the active tab.
func (s *service) BookmarkBarVisible() bool {
	s.mu.Lock()
	newTabPage := true
	if t := s.tabs[s.active]; t != nil {
		newTabPage = t.nav.URL == schema.NewTabURL
	}
	s.mu.Unlock()
	return s.bookmarks.BarVisible(newTabPage)
}

func (s *service) Bookmarks() schema.BookmarkSnapshot {
	return s.bookmarks.Snapshot()
}

func (s *service) IsBookmarked(url string) bool {
	return s.bookmarks.IsBookmarked(url)
}

func (s *service) bookmarksChanged() {
	if !s.bookmarks.Dirty() {
		return
	}
	s.mu.Lock()
	s.markDirtyLocked()
	s.mu.Unlock()
}
