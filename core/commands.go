package core

import (
	"context"
	"fmt"
	"slices"

	"pkt.systems/glass/internal/logx"
	"pkt.systems/glass/schema"
)

// Host command names bound to shortcuts.
const (
	CommandNewTab       = "new_tab"
	CommandCloseTab     = "close_tab"
	CommandReload       = "reload"
	CommandBack         = "back"
	CommandForward      = "forward"
	CommandStop         = "stop"
	CommandNextTab      = "next_tab"
	CommandPrevTab      = "prev_tab"
	CommandReopenTab    = "reopen_tab"
	CommandFocusAddress = "focus_address"
	CommandFind         = "find"
	CommandTogglePin    = "toggle_pin"
	CommandCloseOthers  = "close_other_tabs"
	CommandBookmark     = "bookmark"
)

// RunCommand executes a host command against tab id, or the active tab when
// id is empty. UI-only commands such as focus_address are left to the sink.
func (s *service) RunCommand(ctx context.Context, id schema.TabID, command string) error {
	if id == "" {
		s.mu.Lock()
		id = s.active
		s.mu.Unlock()
	}
	log := logx.WithTab(ctx, id).With("command", command)
	log.Debug("service command run")
	switch command {
	case CommandNewTab:
		_, err := s.CreateTab(ctx, schema.NewTabURL, true)
		return err
	case CommandCloseTab:
		return s.CloseTab(ctx, id)
	case CommandReload:
		return s.Reload(ctx, id)
	case CommandBack:
		return s.GoBack(ctx, id)
	case CommandForward:
		return s.GoForward(ctx, id)
	case CommandStop:
		return s.Stop(ctx, id)
	case CommandNextTab, CommandPrevTab:
		next, ok := s.neighbour(id, command == CommandNextTab)
		if !ok {
			return nil
		}
		return s.ActivateTab(ctx, next)
	case CommandReopenTab:
		s.mu.Lock()
		if len(s.closedURLs) == 0 {
			s.mu.Unlock()
			return nil
		}
		url := s.closedURLs[len(s.closedURLs)-1]
		s.closedURLs = s.closedURLs[:len(s.closedURLs)-1]
		s.mu.Unlock()
		_, err := s.CreateTab(ctx, url, true)
		return err
	case CommandTogglePin:
		snapshot, err := s.Tab(id)
		if err != nil {
			return err
		}
		return s.PinTab(ctx, id, !snapshot.Pinned)
	case CommandCloseOthers:
		_, err := s.CloseOtherTabs(ctx, id)
		return err
	case CommandBookmark:
		snapshot, err := s.Tab(id)
		if err != nil {
			return err
		}
		if s.IsBookmarked(snapshot.State.URL) {
			return s.RemoveBookmark(ctx, snapshot.State.URL)
		}
		_, _, err = s.BookmarkTab(ctx, id)
		return err
	case CommandFocusAddress, CommandFind:
		return nil
	default:
		log.Warn("service command rejected", "reason", "unknown")
		return fmt.Errorf("unknown command: %s", command)
	}
}

// neighbour returns the tab after (or before) id, wrapping around.
func (s *service) neighbour(id schema.TabID, forward bool) (schema.TabID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) < 2 {
		return "", false
	}
	idx := slices.Index(s.order, id)
	if idx < 0 {
		return "", false
	}
	step := 1
	if !forward {
		step = len(s.order) - 1
	}
	return s.order[(idx+step)%len(s.order)], true
}
