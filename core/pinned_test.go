package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/glass/internal/persist"
	"pkt.systems/glass/schema"
)

func tabIDs(tabs []schema.TabSnapshot) []schema.TabID {
	ids := make([]schema.TabID, 0, len(tabs))
	for _, tab := range tabs {
		ids = append(ids, tab.ID)
	}
	return ids
}

func TestPinTabMovesTabFirstAndKeepsActive(t *testing.T) {
	h := newHarness(t, schema.BrowserConfig{}, false)
	ctx := context.Background()
	a, _ := h.newTab(t, "https://a.example")
	b, _ := h.newTab(t, "https://b.example")
	c, _ := h.newTab(t, "https://c.example")

	if err := h.svc.PinTab(ctx, c.ID, true); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := h.svc.PinTab(ctx, b.ID, true); err != nil {
		t.Fatalf("pin: %v", err)
	}
	tabs, active := h.svc.ListTabs(ctx)
	if diff := cmp.Diff([]schema.TabID{c.ID, b.ID, a.ID}, tabIDs(tabs)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if active != c.ID {
		t.Fatalf("expected active tab to stay %s, got %s", c.ID, active)
	}
	if !tabs[0].Pinned || !tabs[1].Pinned || tabs[2].Pinned {
		t.Fatalf("unexpected pinned flags %+v", tabs)
	}
	if h.sink.count(schema.TabEventPinned) != 2 {
		t.Fatalf("expected two pinned events, got %v", h.sink.types())
	}

	if err := h.svc.RunCommand(ctx, c.ID, CommandTogglePin); err != nil {
		t.Fatalf("toggle pin: %v", err)
	}
	tabs, _ = h.svc.ListTabs(ctx)
	if diff := cmp.Diff([]schema.TabID{b.ID, c.ID, a.ID}, tabIDs(tabs)); diff != "" {
		t.Fatalf("order after unpin mismatch (-want +got):\n%s", diff)
	}
	if tabs[1].Pinned {
		t.Fatalf("expected %s unpinned", c.ID)
	}
	if err := h.svc.PinTab(ctx, "missing", true); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("expected ErrTabNotFound, got %v", err)
	}
}

func TestCloseOtherTabsKeepsPinned(t *testing.T) {
	h := newHarness(t, schema.BrowserConfig{}, false)
	ctx := context.Background()
	pinned, _ := h.newTab(t, "https://pinned.example")
	a, _ := h.newTab(t, "https://a.example")
	keep, _ := h.newTab(t, "https://keep.example")
	h.newTab(t, "https://b.example")
	if err := h.svc.PinTab(ctx, pinned.ID, true); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := h.svc.ActivateTab(ctx, a.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	closed, err := h.svc.CloseOtherTabs(ctx, keep.ID)
	if err != nil || closed != 2 {
		t.Fatalf("close others: closed=%d err=%v", closed, err)
	}
	tabs, active := h.svc.ListTabs(ctx)
	if diff := cmp.Diff([]schema.TabID{pinned.ID, keep.ID}, tabIDs(tabs)); diff != "" {
		t.Fatalf("remaining tabs mismatch (-want +got):\n%s", diff)
	}
	if active != keep.ID {
		t.Fatalf("expected kept tab active, got %s", active)
	}
}

func TestPinnedTabsRoundTripSession(t *testing.T) {
	h := newHarness(t, schema.BrowserConfig{RestoreSession: true}, true)
	ctx := context.Background()
	saved := schema.SessionSnapshot{
		Tabs: []schema.SessionTab{
			{URL: "https://a.example", Title: "A"},
			{URL: "", Title: schema.DefaultTabTitle, IsNewTabPage: true},
			{URL: "https://pinned.example", Title: "Pinned", IsPinned: true},
		},
		ActiveIndex: 0,
	}
	if err := h.store.Put(persist.KeyTabs, saved); err != nil {
		t.Fatalf("put: %v", err)
	}
	if n, err := h.svc.RestoreSession(ctx); err != nil || n != 3 {
		t.Fatalf("restore: n=%d err=%v", n, err)
	}
	tabs, active := h.svc.ListTabs(ctx)
	if !tabs[0].Pinned || tabs[0].State.URL != "https://pinned.example" {
		t.Fatalf("expected pinned tab first, got %+v", tabs[0])
	}
	if tabs[2].State.URL != schema.NewTabURL {
		t.Fatalf("expected new tab page restored, got %q", tabs[2].State.URL)
	}
	if active != tabs[1].ID || tabs[1].State.URL != "https://a.example" {
		t.Fatalf("expected saved active tab to stay active, got %s", active)
	}

	if err := h.svc.SaveNow(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	var got schema.SessionSnapshot
	if ok, err := h.store.Get(persist.KeyTabs, &got); err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	want := []schema.SessionTab{
		{URL: "https://pinned.example", Title: "Pinned", IsPinned: true},
		{URL: "https://a.example", Title: "A"},
		{URL: schema.NewTabURL, Title: schema.DefaultTabTitle, IsNewTabPage: true},
	}
	if diff := cmp.Diff(want, got.Tabs); diff != "" {
		t.Fatalf("saved tabs mismatch (-want +got):\n%s", diff)
	}
	if got.ActiveIndex != 1 {
		t.Fatalf("expected active index 1, got %d", got.ActiveIndex)
	}
}

func TestBookmarksPersistAcrossServices(t *testing.T) {
	h := newHarness(t, schema.BrowserConfig{}, true)
	ctx := context.Background()
	snap, engine := h.newTab(t, schema.NewTabURL)
	if _, added, _ := h.svc.BookmarkTab(ctx, snap.ID); added {
		t.Fatalf("new tab page must not be bookmarked")
	}
	engine.client.Display.OnAddressChange("https://go.dev/")
	engine.client.Display.OnTitleChange("Go")
	h.svc.Tick(ctx)

	bookmark, added, err := h.svc.BookmarkTab(ctx, "")
	if err != nil || !added {
		t.Fatalf("bookmark: added=%v err=%v", added, err)
	}
	if bookmark.URL != "https://go.dev/" || bookmark.Title != "Go" {
		t.Fatalf("unexpected bookmark %+v", bookmark)
	}
	if _, added, _ := h.svc.BookmarkTab(ctx, ""); added {
		t.Fatalf("expected second bookmark to be a no-op")
	}
	folder := h.svc.AddBookmarkFolder(ctx, "Lang")
	if err := h.svc.MoveBookmark(ctx, "https://go.dev/", folder.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	if !h.svc.BookmarkBarVisible() {
		t.Fatalf("expected bookmark bar")
	}
	if err := h.svc.SaveNow(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := NewService(schema.BrowserConfig{}, ServiceDeps{Engines: newFakeProvider(), Store: h.store, Pool: h.pool})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer reloaded.Close(ctx)
	if diff := cmp.Diff(h.svc.Bookmarks(), reloaded.Bookmarks()); diff != "" {
		t.Fatalf("bookmarks mismatch (-want +got):\n%s", diff)
	}
	if err := reloaded.RemoveBookmark(ctx, "https://missing.example/"); !errors.Is(err, schema.ErrBookmarkNotFound) {
		t.Fatalf("expected ErrBookmarkNotFound, got %v", err)
	}
	if err := reloaded.RemoveBookmarkFolder(ctx, folder.ID); err != nil {
		t.Fatalf("remove folder: %v", err)
	}
	if top := reloaded.Bookmarks().Bookmarks; len(top) != 1 || top[0].FolderID != 0 {
		t.Fatalf("expected bookmark back at top level, got %+v", top)
	}
}

func TestBookmarkCommandToggles(t *testing.T) {
	h := newHarness(t, schema.BrowserConfig{}, false)
	ctx := context.Background()
	_, engine := h.newTab(t, schema.NewTabURL)
	engine.client.Display.OnAddressChange("https://example.com/")
	h.svc.Tick(ctx)

	if err := h.svc.RunCommand(ctx, "", CommandBookmark); err != nil {
		t.Fatalf("bookmark: %v", err)
	}
	if !h.svc.IsBookmarked("https://example.com/") {
		t.Fatalf("expected page bookmarked")
	}
	if err := h.svc.RunCommand(ctx, "", CommandBookmark); err != nil {
		t.Fatalf("unbookmark: %v", err)
	}
	if h.svc.IsBookmarked("https://example.com/") {
		t.Fatalf("expected bookmark removed")
	}
}
