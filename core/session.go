package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/glass/internal/persist"
	"pkt.systems/glass/schema"
)

type saveJob struct {
	seq uint64
	// session is nil while a failed restore holds the saved session.
	session   *schema.SessionSnapshot
	history   []schema.HistoryEntry
	bookmarks schema.BookmarkSnapshot
}

// markDirtyLocked pushes the pending save out by the debounce interval.
func (s *service) markDirtyLocked() {
	if s.store == nil {
		return
	}
	s.saveAt = s.now().Add(s.cfg.SaveDebounce)
}

// maybeSave hands a due save to the worker pool.
func (s *service) maybeSave() {
	s.mu.Lock()
	if s.store == nil || s.saveAt.IsZero() || s.now().Before(s.saveAt) {
		s.mu.Unlock()
		return
	}
	s.saveAt = time.Time{}
	job := s.snapshotLocked()
	s.mu.Unlock()

	err := s.pool.Submit("session.save", func(context.Context) error {
		return s.write(job)
	})
	if err != nil {
		// Close writes the final snapshot with SaveNow.
		s.logger.Warn("service save dropped", "seq", job.seq, "err", err)
	}
}

// SaveNow writes session and history synchronously.
func (s *service) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.store == nil {
		s.mu.Unlock()
		return nil
	}
	s.saveAt = time.Time{}
	job := s.snapshotLocked()
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(job)
}

func (s *service) snapshotLocked() saveJob {
	session := schema.SessionSnapshot{Tabs: make([]schema.SessionTab, 0, len(s.order))}
	for i, id := range s.order {
		t := s.tabs[id]
		if t == nil {
			continue
		}
		if id == s.active {
			session.ActiveIndex = i
		}
		session.Tabs = append(session.Tabs, schema.SessionTab{
			URL:          t.nav.URL,
			Title:        t.nav.Title,
			FaviconURL:   t.nav.Favicon(),
			IsNewTabPage: t.nav.URL == schema.NewTabURL,
			IsPinned:     t.pinned,
		})
	}
	s.saveSeq++
	s.history.MarkClean()
	s.bookmarks.MarkClean()
	job := saveJob{
		seq:       s.saveSeq,
		history:   s.history.Entries(),
		bookmarks: s.bookmarks.Snapshot(),
	}
	if !s.sessionHeld {
		job.session = &session
	}
	return job
}

// write persists job unless a newer snapshot was already written.
func (s *service) write(job saveJob) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if job.seq <= s.written {
		return nil
	}
	var errs []error
	tabs := 0
	if job.session != nil {
		tabs = len(job.session.Tabs)
		if err := s.store.Put(persist.KeyTabs, job.session); err != nil {
			errs = append(errs, fmt.Errorf("save tabs: %w", err))
		}
	}
	if err := s.store.Put(persist.KeyHistory, job.history); err != nil {
		errs = append(errs, fmt.Errorf("save history: %w", err))
	}
	if err := s.store.Put(persist.KeyBookmarks, job.bookmarks); err != nil {
		errs = append(errs, fmt.Errorf("save bookmarks: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("service save failed", "err", err)
		return err
	}
	s.written = job.seq
	s.logger.Trace("service saved",
		"tabs", tabs,
		"held", job.session == nil,
		"history", len(job.history),
		"bookmarks", len(job.bookmarks.Bookmarks),
	)
	return nil
}

// RestoreSession recreates the persisted tabs, pinned tabs first. It returns
// the number of tabs restored. An engine start failure aborts the restore and
// stops later saves from overwriting the saved tabs.
func (s *service) RestoreSession(ctx context.Context) (int, error) {
	if s.store == nil || !s.cfg.RestoreSession {
		return 0, nil
	}
	var session schema.SessionSnapshot
	ok, err := s.store.Get(persist.KeyTabs, &session)
	if err != nil {
		s.logger.Warn("service session load failed", "err", err)
		return 0, nil
	}
	if !ok || len(session.Tabs) == 0 {
		s.logger.Debug("service session empty")
		return 0, nil
	}
	activeIndex := min(max(session.ActiveIndex, 0), len(session.Tabs)-1)
	var activeID schema.TabID
	for i, saved := range session.Tabs {
		url := saved.URL
		if saved.IsNewTabPage {
			url = schema.NewTabURL
		}
		snapshot, err := s.CreateTab(ctx, url, false)
		if err != nil {
			s.mu.Lock()
			s.sessionHeld = true
			s.mu.Unlock()
			s.logger.Warn("service session held", "restored", i, "saved", len(session.Tabs))
			return i, err
		}
		s.mu.Lock()
		if t := s.tabs[snapshot.ID]; t != nil {
			if saved.Title != "" {
				t.nav.Title = saved.Title
			}
			if saved.FaviconURL != "" {
				t.nav.Favicons = []string{saved.FaviconURL}
			}
			t.pinned = saved.IsPinned
		}
		s.mu.Unlock()
		if i == activeIndex {
			activeID = snapshot.ID
		}
	}
	s.mu.Lock()
	s.sortPinnedFirstLocked()
	s.mu.Unlock()
	if err := s.ActivateTab(ctx, activeID); err != nil {
		return len(session.Tabs), err
	}
	s.logger.Info("service session restored", "tabs", len(session.Tabs), "active_index", activeIndex)
	return len(session.Tabs), nil
}
