package history

import (
	"sort"
	"sync"
	"time"

	"pkt.systems/glass/schema"
)

// DefaultMaxEntries is the store capacity.
const DefaultMaxEntries = schema.DefaultHistoryMaxEntries

// Store holds visited URLs. It is safe for concurrent use, although the host
// only mutates it from its own goroutine.
type Store struct {
	mu      sync.Mutex
	entries []schema.HistoryEntry
	index   map[string]int
	max     int
	dirty   bool
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries overrides the capacity.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithClock overrides the visit clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore builds a store from persisted entries. Entries with an empty or
// new tab URL are skipped, duplicates keep the most recent visit and the
// oldest entries are dropped beyond capacity.
func NewStore(entries []schema.HistoryEntry, opts ...Option) *Store {
	s := &Store{max: DefaultMaxEntries, now: time.Now, index: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}
	for _, entry := range entries {
		if entry.URL == "" || entry.URL == schema.NewTabURL {
			continue
		}
		if pos, ok := s.index[entry.URL]; ok {
			if entry.LastVisitedMs > s.entries[pos].LastVisitedMs {
				s.entries[pos] = entry
			}
			continue
		}
		s.index[entry.URL] = len(s.entries)
		s.entries = append(s.entries, entry)
	}
	if len(s.entries) > s.max {
		sort.SliceStable(s.entries, func(i, j int) bool {
			return s.entries[i].LastVisitedMs > s.entries[j].LastVisitedMs
		})
		s.entries = s.entries[:s.max]
		s.reindex()
		s.dirty = true
	}
	return s
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.entries))
	for i, entry := range s.entries {
		s.index[entry.URL] = i
	}
}

// RecordVisit counts a visit to url. Empty and new tab URLs are ignored.
// The title is only replaced by a non-empty one. It reports whether the store changed.
func (s *Store) RecordVisit(url, title string) bool {
	if url == "" || url == schema.NewTabURL {
		return false
	}
	nowMs := s.now().UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	if pos, ok := s.index[url]; ok {
		entry := &s.entries[pos]
		entry.VisitCount++
		entry.LastVisitedMs = nowMs
		if title != "" {
			entry.Title = title
		}
		return true
	}
	s.index[url] = len(s.entries)
	s.entries = append(s.entries, schema.HistoryEntry{
		URL:           url,
		Title:         title,
		VisitCount:    1,
		LastVisitedMs: nowMs,
	})
	if len(s.entries) > s.max {
		s.evictOldest()
	}
	return true
}

// UpdateTitle replaces the title of a known URL without counting a visit.
func (s *Store) UpdateTitle(url, title string) bool {
	if title == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.index[url]
	if !ok || s.entries[pos].Title == title {
		return false
	}
	s.entries[pos].Title = title
	s.dirty = true
	return true
}

// evictOldest swap-removes the entry with the smallest last visit.
func (s *Store) evictOldest() {
	oldest := 0
	for i := 1; i < len(s.entries); i++ {
		if s.entries[i].LastVisitedMs < s.entries[oldest].LastVisitedMs {
			oldest = i
		}
	}
	last := len(s.entries) - 1
	delete(s.index, s.entries[oldest].URL)
	if oldest != last {
		s.entries[oldest] = s.entries[last]
		s.index[s.entries[oldest].URL] = oldest
	}
	s.entries[last] = schema.HistoryEntry{}
	s.entries = s.entries[:last]
}

// Entries returns a copy of the entries in storage order.
func (s *Store) Entries() []schema.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.HistoryEntry(nil), s.entries...)
}

// Lookup returns the entry for url.
func (s *Store) Lookup(url string) (schema.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.index[url]
	if !ok {
		return schema.HistoryEntry{}, false
	}
	return s.entries[pos], true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
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

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.index = make(map[string]int)
	s.dirty = true
	s.mu.Unlock()
}
