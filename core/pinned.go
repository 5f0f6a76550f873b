package core

import (
	"context"
	"slices"

	"pkt.systems/glass/internal/logx"
	"pkt.systems/glass/schema"
)

// sortPinnedFirstLocked moves pinned tabs to the front, keeping the relative
// order within each group.
func (s *service) sortPinnedFirstLocked() {
	slices.SortStableFunc(s.order, func(a, b schema.TabID) int {
		pa, pb := s.tabs[a] != nil && s.tabs[a].pinned, s.tabs[b] != nil && s.tabs[b].pinned
		switch {
		case pa == pb:
			return 0
		case pa:
			return -1
		default:
			return 1
		}
	})
}

// PinTab pins or unpins tab id, or the active tab when id is empty. The
// active tab stays active.
func (s *service) PinTab(ctx context.Context, id schema.TabID, pinned bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.ErrServiceClosed
	}
	if id == "" {
		id = s.active
	}
	log := logx.WithTab(ctx, id)
	t := s.tabs[id]
	if t == nil {
		s.mu.Unlock()
		log.Warn("service tab pin failed", "err", schema.ErrTabNotFound)
		return schema.ErrTabNotFound
	}
	if t.pinned == pinned {
		s.mu.Unlock()
		return nil
	}
	t.pinned = pinned
	s.sortPinnedFirstLocked()
	s.markDirtyLocked()
	active := s.active
	snapshot := t.Snapshot(id == active)
	s.mu.Unlock()

	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventPinned, Tab: snapshot, ActiveTab: active})
	log.Info("service tab pinned", "pinned", pinned)
	return nil
}

// CloseOtherTabs closes every unpinned tab except keep, activates keep and
// returns the number of closed tabs.
func (s *service) CloseOtherTabs(ctx context.Context, keep schema.TabID) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, schema.ErrServiceClosed
	}
	if keep == "" {
		keep = s.active
	}
	if s.tabs[keep] == nil {
		s.mu.Unlock()
		return 0, schema.ErrTabNotFound
	}
	var victims []schema.TabID
	for _, id := range s.order {
		if id != keep && !s.tabs[id].pinned {
			victims = append(victims, id)
		}
	}
	s.mu.Unlock()

	if err := s.ActivateTab(ctx, keep); err != nil {
		return 0, err
	}
	closed := 0
	for _, id := range victims {
		if err := s.CloseTab(ctx, id); err != nil {
			return closed, err
		}
		closed++
	}
	logx.WithTab(ctx, keep).Info("service other tabs closed", "closed", closed)
	return closed, nil
}
