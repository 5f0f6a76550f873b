package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/schema"
)

type fakeEngine struct {
	mu     sync.Mutex
	client *adapters.Client
	calls  []string
	closed bool
}

func (e *fakeEngine) record(format string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("engine closed")
	}
	e.calls = append(e.calls, fmt.Sprintf(format, args...))
	return nil
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeEngine) Navigate(url string) error { return e.record("navigate %s", url) }
func (e *fakeEngine) GoBack() error             { return e.record("back") }
func (e *fakeEngine) GoForward() error          { return e.record("forward") }
func (e *fakeEngine) Reload() error             { return e.record("reload") }
func (e *fakeEngine) Stop() error               { return e.record("stop") }
func (e *fakeEngine) Resize(width, height int, scale float64) error {
	return e.record("resize %dx%d@%.1f", width, height, scale)
}
func (e *fakeEngine) Scroll(dx, dy float64) error { return e.record("scroll %.0f,%.0f", dx, dy) }
func (e *fakeEngine) SendKey(event schema.KeyEvent) error {
	if e.client.Keyboard.OnPreKeyEvent(event) {
		return nil
	}
	return e.record("key %s", event.Key)
}
func (e *fakeEngine) Find(text string, forward, findNext bool) error {
	return e.record("find %s", text)
}
func (e *fakeEngine) StopFinding(clearSelection bool) error { return e.record("stop_finding") }
func (e *fakeEngine) Edit(cmd schema.EditCommand) error     { return e.record("edit %s", cmd) }
func (e *fakeEngine) ShowDevTools() error                   { return e.record("devtools") }
func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

type fakeProvider struct {
	mu      sync.Mutex
	engines map[schema.TabID]*fakeEngine
	urls    []string
	failOn  string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{engines: make(map[schema.TabID]*fakeEngine)}
}

func (p *fakeProvider) Start(_ context.Context, req EngineRequest) (Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn != "" && req.URL == p.failOn {
		return nil, errors.New("engine start failed")
	}
	engine := &fakeEngine{client: req.Client}
	p.engines[req.TabID] = engine
	p.urls = append(p.urls, req.URL)
	return engine, nil
}

func (p *fakeProvider) Close(context.Context) error { return nil }

func (p *fakeProvider) engine(id schema.TabID) *fakeEngine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engines[id]
}

func (p *fakeProvider) startedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.TabEvent
}

func (s *recordingSink) OnTabEvent(event schema.TabEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) types() []schema.TabEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.TabEventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

func (s *recordingSink) count(kind schema.TabEventType) int {
	n := 0
	for _, t := range s.types() {
		if t == kind {
			n++
		}
	}
	return n
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.UnixMilli(1_800_000_000_000)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type scheduled struct {
	fn      func()
	stopped bool
}

type manualScheduler struct {
	pending []*scheduled
}

func (m *manualScheduler) AfterFunc(_ time.Duration, fn func()) func() bool {
	entry := &scheduled{fn: fn}
	m.pending = append(m.pending, entry)
	return func() bool {
		if entry.stopped || entry.fn == nil {
			return false
		}
		entry.stopped = true
		return true
	}
}

func (m *manualScheduler) fire() {
	pending := m.pending
	m.pending = nil
	for _, entry := range pending {
		if entry.stopped {
			continue
		}
		fn := entry.fn
		entry.fn = nil
		fn()
	}
}
