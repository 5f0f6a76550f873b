package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pkt.systems/glass/internal/logx"
	"pkt.systems/glass/schema"
)

const bookmarkUsage = "usage: /bookmark [add|remove [url]|list|folder <name>|rmfolder <id>|move <url> <folder-id>|bar always|new_tab_only]"

func (h *Handler) handleBookmark(ctx context.Context, active schema.TabID, cmd Command) error {
	log := logx.Ctx(ctx)
	switch cmd.Arg(0) {
	case "", "add":
		if active == "" {
			return schema.ErrNoTabs
		}
		bookmark, added, err := h.service.BookmarkTab(ctx, active)
		if err != nil {
			log.Warn("command bookmark failed", "err", err)
			return err
		}
		switch {
		case added:
			h.println("bookmarked: " + bookmark.URL)
		case bookmark.URL == schema.NewTabURL:
			h.println("new tab page cannot be bookmarked")
		default:
			h.println("already bookmarked: " + bookmark.URL)
		}
		return nil
	case "remove", "rm":
		url := cmd.Arg(1)
		if url == "" {
			if active == "" {
				return schema.ErrNoTabs
			}
			snap, err := h.service.Tab(active)
			if err != nil {
				return err
			}
			url = snap.State.URL
		}
		if err := h.service.RemoveBookmark(ctx, url); err != nil {
			return fmt.Errorf("%w: %s", err, url)
		}
		h.println("bookmark removed: " + url)
		return nil
	case "list", "ls":
		lines := FormatBookmarks(h.service.Bookmarks())
		bar := "hidden"
		if h.service.BookmarkBarVisible() {
			bar = "visible"
		}
		h.println(append(lines, "bar: "+bar)...)
		return nil
	case "folder":
		if len(cmd.Args) < 2 {
			return errors.New("usage: /bookmark folder <name>")
		}
		name := strings.TrimSpace(strings.TrimPrefix(cmd.Remainder, cmd.Args[0]))
		folder := h.service.AddBookmarkFolder(ctx, name)
		h.println(fmt.Sprintf("folder %d created: %s", folder.ID, folder.Name))
		return nil
	case "rmfolder":
		id, err := parseFolderID(cmd.Arg(1))
		if err != nil || id == 0 {
			return errors.New("usage: /bookmark rmfolder <id>")
		}
		if err := h.service.RemoveBookmarkFolder(ctx, id); err != nil {
			return err
		}
		h.println(fmt.Sprintf("folder %d removed", id))
		return nil
	case "move", "mv":
		if len(cmd.Args) != 3 {
			return errors.New("usage: /bookmark move <url> <folder-id>")
		}
		id, err := parseFolderID(cmd.Args[2])
		if err != nil {
			return err
		}
		return h.service.MoveBookmark(ctx, cmd.Args[1], id)
	case "bar":
		v := schema.BookmarkBarVisibility(cmd.Arg(1))
		if v != schema.BookmarkBarAlways && v != schema.BookmarkBarNewTabOnly {
			return errors.New("usage: /bookmark bar always|new_tab_only")
		}
		h.service.SetBookmarkBarVisibility(ctx, v)
		return nil
	default:
		return errors.New(bookmarkUsage)
	}
}

// handlePin pins or unpins the referenced tab, or the active one.
func (h *Handler) handlePin(ctx context.Context, active schema.TabID, cmd Command, pinned bool) error {
	target, err := h.targetTab(ctx, active, cmd)
	if err != nil {
		return err
	}
	if err := h.service.PinTab(ctx, target, pinned); err != nil {
		logx.WithTab(ctx, target).Warn("command pin failed", "err", err)
		return err
	}
	if pinned {
		h.println("tab pinned")
	} else {
		h.println("tab unpinned")
	}
	return nil
}

func (h *Handler) handleCloseOthers(ctx context.Context, active schema.TabID, cmd Command) error {
	target, err := h.targetTab(ctx, active, cmd)
	if err != nil {
		return err
	}
	closed, err := h.service.CloseOtherTabs(ctx, target)
	if err != nil {
		return err
	}
	h.println(fmt.Sprintf("%d tabs closed", closed))
	return nil
}

func (h *Handler) targetTab(ctx context.Context, active schema.TabID, cmd Command) (schema.TabID, error) {
	if len(cmd.Args) > 1 {
		return "", fmt.Errorf("usage: /%s [tab]", cmd.Name)
	}
	if len(cmd.Args) == 1 {
		tabs, _ := h.service.ListTabs(ctx)
		return resolveTabRef(cmd.Args[0], tabs)
	}
	if active == "" {
		return "", schema.ErrNoTabs
	}
	return active, nil
}

// FormatBookmarks renders top-level bookmarks followed by each folder with
// its bookmarks indented.
func FormatBookmarks(snapshot schema.BookmarkSnapshot) []string {
	if len(snapshot.Bookmarks) == 0 && len(snapshot.Folders) == 0 {
		return []string{"no bookmarks"}
	}
	var lines []string
	for _, b := range snapshot.Bookmarks {
		if b.FolderID == 0 {
			lines = append(lines, formatBookmark("  ", b))
		}
	}
	for _, folder := range snapshot.Folders {
		lines = append(lines, fmt.Sprintf("  [%d] %s/", folder.ID, folder.Name))
		for _, b := range snapshot.Bookmarks {
			if b.FolderID == folder.ID {
				lines = append(lines, formatBookmark("      ", b))
			}
		}
	}
	return lines
}

func formatBookmark(indent string, b schema.Bookmark) string {
	if b.Title == "" || b.Title == b.URL {
		return indent + b.URL
	}
	return fmt.Sprintf("%s%s  %s", indent, b.Title, b.URL)
}

func parseFolderID(value string) (uint64, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid folder id: %s", value)
	}
	return id, nil
}
