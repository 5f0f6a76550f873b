package core

import (
	"context"
	"time"

	"pkt.systems/glass/internal/logx"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// Tick drains every tab's event bridge, folds the events into tab state,
// notifies the sink and runs the deferred effects. It must only be called
// from the host goroutine and returns the number of engine events handled.
func (s *service) Tick(ctx context.Context) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	handled := 0
	var out []schema.TabEvent
	for _, id := range s.order {
		t := s.tabs[id]
		if t == nil {
			continue
		}
		events := t.events.Drain()
		handled += len(events)
		frameSeen := false
		for _, ev := range events {
			if ev.Type == schema.EventFrameReady {
				if frameSeen {
					continue
				}
				frameSeen = true
			}
			if tabEvent, ok := s.applyLocked(ctx, t, ev); ok {
				out = append(out, tabEvent)
			}
		}
	}
	s.mu.Unlock()

	for _, event := range out {
		s.emitTabEvent(event)
	}
	s.effects.run(ctx)
	s.maybeSave()
	return handled
}

// applyLocked folds one engine event into t. Work that needs the service API
// is posted as an effect for the end of this tick.
func (s *service) applyLocked(ctx context.Context, t *tab, ev schema.Event) (schema.TabEvent, bool) {
	log := logx.WithProducer(logx.WithTab(ctx, t.ID), ev.Source, ev.Seq)
	wasLoading := t.nav.IsLoading
	changed := t.nav.Apply(ev)
	event := schema.TabEvent{Type: schema.TabEventNavigation, Tab: t.Snapshot(t.ID == s.active), ActiveTab: s.active, Cause: ev}

	switch ev.Type {
	case schema.EventLoadingStateChanged:
		if ev.Loading.IsLoading {
			t.recorded = ""
		} else if wasLoading {
			s.recordVisitLocked(log, t)
		}
		return event, changed
	case schema.EventAddressChanged:
		if changed {
			s.markDirtyLocked()
		}
		return event, changed
	case schema.EventTitleChanged:
		if changed {
			if t.recorded != "" && t.recorded == t.nav.URL {
				s.history.UpdateTitle(t.nav.URL, t.nav.Title)
			}
			s.markDirtyLocked()
		}
		return event, changed
	case schema.EventLoadingProgress:
		return event, changed
	case schema.EventFaviconURLsChanged:
		if changed {
			s.markDirtyLocked()
		}
		return event, changed
	case schema.EventLoadError:
		if ev.Error == nil {
			return event, false
		}
		log.Warn("service load error", "url", ev.Error.URL, "code", ev.Error.Code, "text", ev.Error.Text)
		event.Type = schema.TabEventLoadError
		return event, true
	case schema.EventFrameReady:
		event.Type = schema.TabEventFrameReady
		return event, true
	case schema.EventContextMenuRequested:
		if ev.ContextMenu == nil {
			return event, false
		}
		s.menus.Open(t.ID, *ev.ContextMenu)
		event.Type = schema.TabEventContextMenu
		return event, true
	case schema.EventFindResult:
		if ev.Find == nil {
			return event, false
		}
		result := *ev.Find
		t.find = &result
		event.Type = schema.TabEventFind
		return event, true
	case schema.EventDownloadUpdated:
		event.Type = schema.TabEventDownload
		return event, ev.Download != nil
	case schema.EventShortcutPressed:
		id, command := t.ID, ev.Shortcut
		s.Post(func(ctx context.Context) {
			if err := s.RunCommand(ctx, id, command); err != nil {
				logx.WithTab(ctx, id).Warn("service shortcut failed", "command", command, "err", err)
			}
		})
		event.Type = schema.TabEventShortcut
		return event, true
	case schema.EventPopupRequested:
		url := ev.URL
		log.Info("service popup", "target", url)
		s.Post(func(ctx context.Context) {
			if _, err := s.CreateTab(ctx, url, true); err != nil {
				s.logger.Warn("service popup tab failed", "url", url, "err", err)
			}
		})
		return event, false
	case schema.EventBrowserCreated:
		log.Info("service browser created")
		return event, false
	case schema.EventBrowserClosed:
		log.Info("service browser closed")
		return event, false
	default:
		log.Debug("service event ignored", "type", ev.Type)
		return event, false
	}
}

// recordVisitLocked counts the settled load of t in history once per load.
// Failed loads are not recorded.
func (s *service) recordVisitLocked(log pslog.Logger, t *tab) {
	url := t.nav.URL
	if t.nav.LastError != nil || url == "" || url == schema.NewTabURL || t.recorded == url {
		return
	}
	if s.history.RecordVisit(url, t.nav.Title) {
		t.recorded = url
		log.Debug("service history visit", "url", url)
		s.markDirtyLocked()
	}
}

// Run ticks until ctx is done. It wakes on posted effects and otherwise every
// tick interval.
func (s *service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickDur)
	defer ticker.Stop()
	s.logger.Info("service loop start", "interval", s.tickDur)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("service loop stop")
			return ctx.Err()
		case <-ticker.C:
		case <-s.effects.wake:
		}
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return schema.ErrServiceClosed
		}
		s.Tick(ctx)
	}
}
