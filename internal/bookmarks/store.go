// Package bookmarks keeps saved URLs and their folders.
package bookmarks

import (
	"slices"
	"sync"

	"pkt.systems/glass/schema"
)

// Store holds bookmarks and folders in insertion order. It is safe for
// concurrent use.
type Store struct {
	mu         sync.Mutex
	bookmarks  []schema.Bookmark
	folders    []schema.BookmarkFolder
	nextFolder uint64
	visibility schema.BookmarkBarVisibility
	dirty      bool
}

// NewStore builds a store from a persisted snapshot. Duplicate URLs keep the
// first bookmark, and bookmarks pointing at unknown folders move to the top
// level.
func NewStore(snapshot schema.BookmarkSnapshot) *Store {
	s := &Store{
		nextFolder: max(snapshot.NextFolderID, 1),
		visibility: snapshot.Visibility,
	}
	if s.visibility != schema.BookmarkBarNewTabOnly {
		s.visibility = schema.BookmarkBarAlways
	}
	for _, folder := range snapshot.Folders {
		if folder.ID == 0 || s.folderIndex(folder.ID) >= 0 {
			continue
		}
		s.folders = append(s.folders, folder)
		s.nextFolder = max(s.nextFolder, folder.ID+1)
	}
	for _, bookmark := range snapshot.Bookmarks {
		if bookmark.URL == "" || s.index(bookmark.URL) >= 0 {
			continue
		}
		if bookmark.FolderID != 0 && s.folderIndex(bookmark.FolderID) < 0 {
			bookmark.FolderID = 0
		}
		s.bookmarks = append(s.bookmarks, bookmark)
	}
	return s
}

func (s *Store) index(url string) int {
	return slices.IndexFunc(s.bookmarks, func(b schema.Bookmark) bool { return b.URL == url })
}

func (s *Store) folderIndex(id uint64) int {
	return slices.IndexFunc(s.folders, func(f schema.BookmarkFolder) bool { return f.ID == id })
}

// Add bookmarks url. It reports false when url is already bookmarked or empty.
func (s *Store) Add(bookmark schema.Bookmark) (bool, error) {
	if bookmark.URL == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(bookmark.URL) >= 0 {
		return false, nil
	}
	if bookmark.FolderID != 0 && s.folderIndex(bookmark.FolderID) < 0 {
		return false, schema.ErrFolderNotFound
	}
	s.bookmarks = append(s.bookmarks, bookmark)
	s.dirty = true
	return true, nil
}

// Remove deletes the bookmark for url.
func (s *Store) Remove(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(url)
	if i < 0 {
		return false
	}
	s.bookmarks = slices.Delete(s.bookmarks, i, i+1)
	s.dirty = true
	return true
}

// AddFolder creates a folder and returns its id.
func (s *Store) AddFolder(name string) schema.BookmarkFolder {
	s.mu.Lock()
	defer s.mu.Unlock()
	folder := schema.BookmarkFolder{ID: s.nextFolder, Name: name}
	s.nextFolder++
	s.folders = append(s.folders, folder)
	s.dirty = true
	return folder
}

// RemoveFolder deletes a folder. Its bookmarks move to the top level.
func (s *Store) RemoveFolder(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.folderIndex(id)
	if i < 0 {
		return false
	}
	s.folders = slices.Delete(s.folders, i, i+1)
	for j := range s.bookmarks {
		if s.bookmarks[j].FolderID == id {
			s.bookmarks[j].FolderID = 0
		}
	}
	s.dirty = true
	return true
}

// Move puts the bookmark for url into folder. Folder zero is the top level.
func (s *Store) Move(url string, folder uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(url)
	if i < 0 {
		return schema.ErrBookmarkNotFound
	}
	if folder != 0 && s.folderIndex(folder) < 0 {
		return schema.ErrFolderNotFound
	}
	if s.bookmarks[i].FolderID != folder {
		s.bookmarks[i].FolderID = folder
		s.dirty = true
	}
	return nil
}

// TopLevel returns the bookmarks outside any folder.
func (s *Store) TopLevel() []schema.Bookmark {
	return s.InFolder(0)
}

// InFolder returns the bookmarks in folder.
func (s *Store) InFolder(folder uint64) []schema.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Bookmark
	for _, b := range s.bookmarks {
		if b.FolderID == folder {
			out = append(out, b)
		}
	}
	return out
}

// Folders returns the folders in creation order.
func (s *Store) Folders() []schema.BookmarkFolder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.BookmarkFolder(nil), s.folders...)
}

// Find returns the bookmark for url.
func (s *Store) Find(url string) (schema.Bookmark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(url)
	if i < 0 {
		return schema.Bookmark{}, false
	}
	return s.bookmarks[i], true
}

// IsBookmarked reports whether url is bookmarked.
func (s *Store) IsBookmarked(url string) bool {
	_, ok := s.Find(url)
	return ok
}

// IsEmpty reports whether the store holds neither bookmarks nor folders.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookmarks) == 0 && len(s.folders) == 0
}

// SetVisibility changes when the bookmark bar is shown.
func (s *Store) SetVisibility(v schema.BookmarkBarVisibility) {
	if v != schema.BookmarkBarNewTabOnly {
		v = schema.BookmarkBarAlways
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visibility != v {
		s.visibility = v
		s.dirty = true
	}
}

// BarVisible reports whether the bar shows for a tab. An empty store never
// shows the bar.
func (s *Store) BarVisible(newTabPage bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bookmarks) == 0 && len(s.folders) == 0 {
		return false
	}
	return s.visibility == schema.BookmarkBarAlways || newTabPage
}

// Snapshot returns a persistable copy of the store.
func (s *Store) Snapshot() schema.BookmarkSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.BookmarkSnapshot{
		Bookmarks:    append([]schema.Bookmark{}, s.bookmarks...),
		Folders:      append([]schema.BookmarkFolder{}, s.folders...),
		NextFolderID: s.nextFolder,
		Visibility:   s.visibility,
	}
}

// Dirty reports whether the store changed since MarkClean.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// MarkClean clears the dirty flag after a save.
func (s *Store) MarkClean() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}
