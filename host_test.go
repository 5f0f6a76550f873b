package glass

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pkt.systems/glass/core"
	"pkt.systems/glass/internal/eventbus"
	"pkt.systems/glass/internal/persist"
	"pkt.systems/glass/schema"
)

type nopEngine struct{}

func (nopEngine) Navigate(string) error          { return nil }
func (nopEngine) GoBack() error                  { return nil }
func (nopEngine) GoForward() error               { return nil }
func (nopEngine) Reload() error                  { return nil }
func (nopEngine) Stop() error                    { return nil }
func (nopEngine) Resize(int, int, float64) error { return nil }
func (nopEngine) Scroll(float64, float64) error  { return nil }
func (nopEngine) SendKey(schema.KeyEvent) error  { return nil }
func (nopEngine) Find(string, bool, bool) error  { return nil }
func (nopEngine) StopFinding(bool) error         { return nil }
func (nopEngine) Edit(schema.EditCommand) error  { return nil }
func (nopEngine) ShowDevTools() error            { return nil }
func (nopEngine) Close() error                   { return nil }

type recordingProvider struct {
	mu     sync.Mutex
	urls   []string
	closed int
}

func (p *recordingProvider) Start(_ context.Context, req core.EngineRequest) (core.Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, req.URL)
	return nopEngine{}, nil
}

func (p *recordingProvider) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

type failingProvider struct {
	err error
}

func (p failingProvider) Start(context.Context, core.EngineRequest) (core.Engine, error) {
	return nil, p.err
}

func (failingProvider) Close(context.Context) error { return nil }

type recordingSink struct {
	events []schema.TabEvent
}

func (s *recordingSink) OnTabEvent(event schema.TabEvent) {
	s.events = append(s.events, event)
}

func newTestHost(t *testing.T, dir string, provider core.EngineProvider) Host {
	t.Helper()
	h, err := New(HostConfig{
		Browser:      schema.BrowserConfig{RestoreSession: true},
		StateDir:     dir,
		TickInterval: time.Millisecond,
		Workers:      1,
	}, HostDeps{Engines: provider})
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	return h
}

func TestFanoutSkipsNilSinks(t *testing.T) {
	if fanout(nil, nil) != nil {
		t.Fatalf("expected nil sink when nothing is wired")
	}
	a := &recordingSink{}
	if fanout(nil, a) != a {
		t.Fatalf("expected single sink to be returned as is")
	}
	b := &recordingSink{}
	sink := fanout(a, nil, b)
	sink.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both sinks to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}

func TestHostSavesAndRestoresSession(t *testing.T) {
	dir := t.TempDir()
	provider := &recordingProvider{}
	h := newTestHost(t, dir, provider)
	ctx := context.Background()
	if err := h.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	events, cancel := h.Events().Subscribe(eventbus.AllTabs)
	defer cancel()

	if _, err := h.Service().CreateTab(ctx, "https://example.com/", true); err != nil {
		t.Fatalf("create tab: %v", err)
	}
	select {
	case event := <-events:
		if event.Type != schema.TabEventCreated {
			t.Fatalf("expected created event, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected tab event on the bus")
	}

	stopCtx, stopCancel := context.WithTimeout(ctx, 5*time.Second)
	defer stopCancel()
	if err := h.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if provider.closed != 1 {
		t.Fatalf("expected provider to be closed once, got %d", provider.closed)
	}
	if _, err := os.Stat(filepath.Join(dir, persist.KeyTabs+".json")); err != nil {
		t.Fatalf("expected saved session: %v", err)
	}

	restoredProvider := &recordingProvider{}
	restored := newTestHost(t, dir, restoredProvider)
	if err := restored.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	t.Cleanup(func() { _ = restored.Stop(context.Background()) })
	tabs, active := restored.Service().ListTabs(ctx)
	if len(tabs) != 1 || tabs[0].State.URL != "https://example.com/" || active != tabs[0].ID {
		t.Fatalf("unexpected restored tabs %+v (active %s)", tabs, active)
	}
	if len(restoredProvider.urls) != 1 || restoredProvider.urls[0] != "https://example.com/" {
		t.Fatalf("expected restored engine start, got %v", restoredProvider.urls)
	}
}

func TestHostStartFailsWhenRestoreFails(t *testing.T) {
	dir := t.TempDir()
	store, err := persist.NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	saved := schema.SessionSnapshot{Tabs: []schema.SessionTab{{URL: "https://example.com/"}}}
	if err := store.Put(persist.KeyTabs, saved); err != nil {
		t.Fatalf("put: %v", err)
	}

	chromeMissing := errors.New("chrome not found")
	h := newTestHost(t, dir, failingProvider{err: chromeMissing})
	err = h.Start(context.Background())
	if !errors.Is(err, chromeMissing) {
		t.Fatalf("expected start to fail with the engine error, got %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case werr := <-done:
		if !errors.Is(werr, chromeMissing) {
			t.Fatalf("expected wait to report the restore error, got %v", werr)
		}
	case <-time.After(time.Second):
		t.Fatalf("wait blocked after a failed start")
	}
	if err := h.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	var got schema.SessionSnapshot
	if ok, err := store.Get(persist.KeyTabs, &got); err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got.Tabs) != 1 || got.Tabs[0].URL != "https://example.com/" {
		t.Fatalf("expected saved session to survive, got %+v", got)
	}
}

func TestHostLocksStateDir(t *testing.T) {
	dir := t.TempDir()
	h := newTestHost(t, dir, &recordingProvider{})
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	_, err := New(HostConfig{StateDir: dir}, HostDeps{Engines: &recordingProvider{}})
	if !errors.Is(err, persist.ErrLocked) {
		t.Fatalf("expected locked state dir, got %v", err)
	}
}

func TestHostStartOnce(t *testing.T) {
	h := newTestHost(t, "", &recordingProvider{})
	if err := h.Wait(); err == nil {
		t.Fatalf("expected wait before start to fail")
	}
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}
	if err := h.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := h.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
