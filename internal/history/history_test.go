package history

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sahilm/fuzzy"

	"pkt.systems/glass/internal/workpool"
	"pkt.systems/glass/schema"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRecordVisitCountsAndTimestamps(t *testing.T) {
	clock := &stepClock{now: time.UnixMilli(1_700_000_000_000)}
	store := NewStore(nil, WithClock(clock.Now))
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		title := ""
		if i == 2 {
			title = "Example"
		}
		store.RecordVisit("https://example.com", title)
	}
	entry, ok := store.Lookup("https://example.com")
	if !ok {
		t.Fatalf("expected entry")
	}
	if entry.VisitCount != 5 {
		t.Fatalf("expected visit count 5, got %d", entry.VisitCount)
	}
	if entry.LastVisitedMs != clock.now.UnixMilli() {
		t.Fatalf("expected last visit %d, got %d", clock.now.UnixMilli(), entry.LastVisitedMs)
	}
	if entry.Title != "Example" {
		t.Fatalf("expected non-empty title to stick, got %q", entry.Title)
	}
	if !store.Dirty() {
		t.Fatalf("expected dirty store")
	}
}

func TestRecordVisitIgnoresBlankURLs(t *testing.T) {
	store := NewStore(nil)
	if store.RecordVisit("", "x") || store.RecordVisit(schema.NewTabURL, "New Tab") {
		t.Fatalf("expected blank urls to be ignored")
	}
	if store.Len() != 0 || store.Dirty() {
		t.Fatalf("expected untouched store")
	}
}

func TestEvictionRemovesOldest(t *testing.T) {
	clock := &stepClock{now: time.UnixMilli(1_000)}
	store := NewStore(nil, WithClock(clock.Now))
	// Visit order is shuffled so the oldest entry is not the first inserted.
	for i := 0; i < DefaultMaxEntries; i++ {
		clock.now = time.UnixMilli(int64(10_000 + (i*7919+1234)%DefaultMaxEntries))
		store.RecordVisit(fmt.Sprintf("https://site%d.example", i), "")
	}
	var oldest schema.HistoryEntry
	for i, entry := range store.Entries() {
		if i == 0 || entry.LastVisitedMs < oldest.LastVisitedMs {
			oldest = entry
		}
	}
	clock.now = time.UnixMilli(1_000_000)
	store.RecordVisit("https://new.example", "")
	if store.Len() != DefaultMaxEntries {
		t.Fatalf("expected %d entries, got %d", DefaultMaxEntries, store.Len())
	}
	if _, ok := store.Lookup(oldest.URL); ok {
		t.Fatalf("expected oldest entry %s to be evicted", oldest.URL)
	}
	if _, ok := store.Lookup("https://new.example"); !ok {
		t.Fatalf("expected new entry to be present")
	}
	for i, entry := range store.Entries() {
		got, ok := store.Lookup(entry.URL)
		if !ok || got != entry {
			t.Fatalf("index out of sync at %d for %s", i, entry.URL)
		}
	}
}

func TestNewStoreCapsAndDeduplicates(t *testing.T) {
	entries := []schema.HistoryEntry{
		{URL: "https://a.example", VisitCount: 1, LastVisitedMs: 10},
		{URL: "https://b.example", VisitCount: 1, LastVisitedMs: 30},
		{URL: "https://a.example", VisitCount: 4, LastVisitedMs: 40},
		{URL: "", VisitCount: 1, LastVisitedMs: 50},
		{URL: "https://c.example", VisitCount: 1, LastVisitedMs: 20},
	}
	store := NewStore(entries, WithMaxEntries(2))
	if store.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", store.Len())
	}
	a, ok := store.Lookup("https://a.example")
	if !ok || a.VisitCount != 4 {
		t.Fatalf("expected most recent duplicate kept, got %+v", a)
	}
	if _, ok := store.Lookup("https://c.example"); ok {
		t.Fatalf("expected oldest entry dropped")
	}
}

func TestRankEmptyQuery(t *testing.T) {
	entries := []schema.HistoryEntry{{URL: "https://example.com", Title: "Example", VisitCount: 1}}
	if got := Rank(entries, "", 5, time.Now(), nil); len(got) != 0 {
		t.Fatalf("expected no results for empty query, got %v", got)
	}
}

func TestRankPrefersRecentFrequentPrefixMatch(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	entries := []schema.HistoryEntry{
		{URL: "https://other.com", Title: "Unrelated", VisitCount: 1, LastVisitedMs: now.Add(-30 * 24 * time.Hour).UnixMilli()},
		{URL: "https://example.com", Title: "Example", VisitCount: 10, LastVisitedMs: now.UnixMilli()},
	}
	results := Rank(entries, "example", 5, now, nil)
	if len(results) == 0 {
		t.Fatalf("expected results")
	}
	if results[0].URL != "https://example.com" {
		t.Fatalf("expected example.com first, got %+v", results)
	}
	if len(results) > 1 && results[0].Score <= results[1].Score {
		t.Fatalf("expected strictly higher score, got %+v", results)
	}
}

func TestRankFreshFrequentBeatsStaleOnCloseMatch(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	fresh := schema.HistoryEntry{
		URL:           "https://docs.example/a",
		Title:         "Read the docs",
		VisitCount:    10,
		LastVisitedMs: now.UnixMilli(),
	}
	stale := schema.HistoryEntry{
		URL:           "https://docs.example/b",
		Title:         "Docs",
		VisitCount:    1,
		LastVisitedMs: now.Add(-60 * 24 * time.Hour).UnixMilli(),
	}
	results := Rank([]schema.HistoryEntry{stale, fresh}, "docs", 5, now, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].URL != fresh.URL {
		t.Fatalf("expected fresh frequent entry first, got %+v", results)
	}
}

func TestRankScoreIndependentOfOtherCandidates(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	target := schema.HistoryEntry{URL: "https://go.dev/doc/", Title: "Documentation", VisitCount: 3, LastVisitedMs: now.UnixMilli()}
	alone := Rank([]schema.HistoryEntry{target}, "doc", 5, now, nil)
	if len(alone) != 1 {
		t.Fatalf("expected one result, got %+v", alone)
	}
	crowd := []schema.HistoryEntry{
		target,
		{URL: "https://doc.example/", Title: "doc", VisitCount: 1, LastVisitedMs: now.UnixMilli()},
		{URL: "https://d.example/o/c", Title: "scattered", VisitCount: 1, LastVisitedMs: now.UnixMilli()},
	}
	for _, match := range Rank(crowd, "doc", 5, now, nil) {
		if match.URL != target.URL {
			continue
		}
		if math.Abs(match.Score-alone[0].Score) > 1e-9 {
			t.Fatalf("score changed with other candidates: alone %v, crowd %v", alone[0].Score, match.Score)
		}
		return
	}
	t.Fatalf("expected target in crowded results")
}

func TestMatchQualityStaysInRange(t *testing.T) {
	for _, query := range []string{"a", "docs", "go dev"} {
		ideal := idealScore(query)
		for _, m := range fuzzy.FindNoSort(query, []string{query, "x " + query + " y", "some/long/path/" + query, "GoDev docs a"}) {
			q := matchQuality(m, ideal)
			if q < 0 || q > 1 {
				t.Fatalf("quality %v out of range for %q in %q", q, query, m.Str)
			}
		}
		if q := matchQuality(fuzzy.FindNoSort(query, []string{query})[0], ideal); q != 1 {
			t.Fatalf("exact match of %q must score 1, got %v", query, q)
		}
	}
}

func TestRankTruncatesAndSorts(t *testing.T) {
	now := time.Now()
	var entries []schema.HistoryEntry
	for i := 0; i < 50; i++ {
		entries = append(entries, schema.HistoryEntry{
			URL:           fmt.Sprintf("https://docs%d.example", i),
			Title:         "Docs",
			VisitCount:    uint32(i + 1),
			LastVisitedMs: now.UnixMilli(),
		})
	}
	results := Rank(entries, "docs", 4, now, nil)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Fatalf("results not sorted: %+v", results)
		}
	}
}

func TestRankHonoursCancellation(t *testing.T) {
	var entries []schema.HistoryEntry
	for i := 0; i < 3*BatchSize; i++ {
		entries = append(entries, schema.HistoryEntry{URL: fmt.Sprintf("https://x%d.example", i), VisitCount: 1})
	}
	var cancel atomic.Bool
	cancel.Store(true)
	if got := Rank(entries, "x", 10, time.Now(), &cancel); got != nil {
		t.Fatalf("expected nil for cancelled search, got %d results", len(got))
	}
}

func TestBonuses(t *testing.T) {
	nowMs := int64(100 * 3_600_000)
	if got := RecencyBonus(nowMs, nowMs); math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("expected 0.3 for a fresh visit, got %v", got)
	}
	if got := RecencyBonus(nowMs, nowMs-24*3_600_000); math.Abs(got-0.15) > 1e-9 {
		t.Fatalf("expected 0.15 for a day old visit, got %v", got)
	}
	if got := FrequencyBonus(10); math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("expected 0.2 at ten visits, got %v", got)
	}
	cases := []struct {
		url   string
		query string
		want  float64
	}{
		{"https://Example.com/a", "example", 0.5},
		{"http://example.com", "exa", 0.5},
		{"example.com", "example", 0.5},
		{"https://www.example.com", "example", 0},
		{"https://example.com", "https://ex", 0.5},
	}
	for _, tc := range cases {
		if got := PrefixBonus(tc.url, tc.query); got != tc.want {
			t.Fatalf("prefix bonus %q/%q: expected %v, got %v", tc.url, tc.query, tc.want, got)
		}
	}
}

func TestSearcherDeliversAndCancelsPrevious(t *testing.T) {
	pool := workpool.New(context.Background(), 1)
	defer pool.Close(context.Background())
	searcher := NewSearcher(pool)
	entries := []schema.HistoryEntry{{URL: "https://golang.org", Title: "Go", VisitCount: 2, LastVisitedMs: time.Now().UnixMilli()}}
	gate := make(chan struct{})
	_ = pool.Submit("gate", func(ctx context.Context) error {
		<-gate
		return nil
	})

	first := searcher.Search(context.Background(), entries, "go", 5)
	second := searcher.Search(context.Background(), entries, "golang", 5)
	if !first.Cancelled() {
		t.Fatalf("expected first search to be cancelled by the second")
	}
	close(gate)
	select {
	case got := <-first.Results():
		if len(got) != 0 {
			t.Fatalf("cancelled search must deliver empty results, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for cancelled search")
	}
	select {
	case got := <-second.Results():
		if len(got) != 1 || got[0].URL != "https://golang.org" {
			t.Fatalf("unexpected results %v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for search")
	}
}

func TestSearcherEmptyQuery(t *testing.T) {
	pool := workpool.New(context.Background(), 1)
	defer pool.Close(context.Background())
	pending := NewSearcher(pool).Search(context.Background(), nil, "", 5)
	if got := <-pending.Results(); got != nil {
		t.Fatalf("expected nil results, got %v", got)
	}
}

func TestUpdateTitleDoesNotCountVisit(t *testing.T) {
	store := NewStore(nil)
	store.RecordVisit("https://example.com", "")
	store.MarkClean()
	if !store.UpdateTitle("https://example.com", "Example") {
		t.Fatalf("expected title update")
	}
	entry, _ := store.Lookup("https://example.com")
	if entry.Title != "Example" || entry.VisitCount != 1 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !store.Dirty() {
		t.Fatalf("expected dirty store after title update")
	}
	if store.UpdateTitle("https://missing.example", "x") {
		t.Fatalf("expected unknown url to be ignored")
	}
}
