package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pkt.systems/glass/core"
	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

type stubEngine struct {
	mu     sync.Mutex
	client *adapters.Client
	calls  []string
}

func (e *stubEngine) record(format string, args ...any) error {
	e.mu.Lock()
	e.calls = append(e.calls, fmt.Sprintf(format, args...))
	e.mu.Unlock()
	return nil
}

func (e *stubEngine) has(call string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (e *stubEngine) Navigate(url string) error { return e.record("navigate %s", url) }
func (e *stubEngine) GoBack() error             { return e.record("back") }
func (e *stubEngine) GoForward() error          { return e.record("forward") }
func (e *stubEngine) Reload() error             { return e.record("reload") }
func (e *stubEngine) Stop() error               { return e.record("stop") }
func (e *stubEngine) Resize(w, h int, scale float64) error {
	return e.record("resize %dx%d@%.1f", w, h, scale)
}
func (e *stubEngine) Scroll(dx, dy float64) error { return e.record("scroll %.0f,%.0f", dx, dy) }
func (e *stubEngine) SendKey(event schema.KeyEvent) error {
	if e.client.Keyboard.OnPreKeyEvent(event) {
		return nil
	}
	return e.record("key %s", adapters.Chord(event))
}
func (e *stubEngine) Find(text string, forward, findNext bool) error {
	return e.record("find %s", text)
}
func (e *stubEngine) StopFinding(bool) error            { return e.record("stop_finding") }
func (e *stubEngine) Edit(cmd schema.EditCommand) error { return e.record("edit %s", cmd) }
func (e *stubEngine) ShowDevTools() error               { return e.record("devtools") }
func (e *stubEngine) Close() error                      { return nil }

type stubProvider struct {
	mu      sync.Mutex
	engines []*stubEngine
}

func (p *stubProvider) Start(_ context.Context, req core.EngineRequest) (core.Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	engine := &stubEngine{client: req.Client}
	p.engines = append(p.engines, engine)
	return engine, nil
}

func (p *stubProvider) Close(context.Context) error { return nil }

func (p *stubProvider) last() *stubEngine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engines[len(p.engines)-1]
}

func newTestHandler(t *testing.T) (*Handler, core.Service, *stubProvider, *bytes.Buffer) {
	t.Helper()
	provider := &stubProvider{}
	svc, err := core.NewService(schema.BrowserConfig{}, core.ServiceDeps{Engines: provider})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	var out bytes.Buffer
	return NewHandler(svc, &out, HandlerConfig{}), svc, provider, &out
}

func TestParse(t *testing.T) {
	cmd, ok := Parse("  /Open   example.com  now ")
	if !ok {
		t.Fatalf("expected slash command")
	}
	if cmd.Name != "open" || cmd.Remainder != "example.com  now" || cmd.Arg(1) != "now" || cmd.Arg(5) != "" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if _, ok := Parse("example.com"); ok {
		t.Fatalf("plain input must not parse as a command")
	}
	if cmd, ok := Parse("/"); !ok || cmd.Name != "" {
		t.Fatalf("expected empty command, got %+v", cmd)
	}
}

func TestAddressInputOpensFirstTab(t *testing.T) {
	h, svc, provider, out := newTestHandler(t)
	handled, err := h.Handle(context.Background(), "example.com")
	if err != nil || !handled {
		t.Fatalf("handle: handled=%v err=%v", handled, err)
	}
	tabs, _ := svc.ListTabs(context.Background())
	if len(tabs) != 1 || tabs[0].State.URL != "https://example.com" {
		t.Fatalf("unexpected tabs %+v", tabs)
	}
	if _, err := h.Handle(context.Background(), "/open golang.org"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !provider.last().has("navigate https://golang.org") {
		t.Fatalf("expected navigation, got %v", provider.last().calls)
	}
	if !strings.Contains(out.String(), "navigating: https://golang.org") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestBlankInputIsNotHandled(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	if handled, err := h.Handle(context.Background(), "   "); handled || err != nil {
		t.Fatalf("expected blank input ignored, got handled=%v err=%v", handled, err)
	}
}

func TestTabCommands(t *testing.T) {
	h, svc, _, out := newTestHandler(t)
	ctx := context.Background()
	for _, line := range []string{"/new a.example", "/new b.example", "/tab 1"} {
		if _, err := h.Handle(ctx, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	tabs, active := svc.ListTabs(ctx)
	if active != tabs[0].ID {
		t.Fatalf("expected first tab active")
	}
	out.Reset()
	if _, err := h.Handle(ctx, "/tabs"); err != nil {
		t.Fatalf("tabs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "* 1") {
		t.Fatalf("unexpected tab listing %q", out.String())
	}
	if _, err := h.Handle(ctx, "/close 2"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if tabs, _ := svc.ListTabs(ctx); len(tabs) != 1 {
		t.Fatalf("expected one tab left, got %d", len(tabs))
	}
	if _, err := h.Handle(ctx, "/tab 9"); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestNavigationCommandsReachEngine(t *testing.T) {
	h, _, provider, _ := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, "/new"); err != nil {
		t.Fatalf("new: %v", err)
	}
	engine := provider.last()
	for _, line := range []string{"/back", "/forward", "/reload", "/stop", "/find needle", "/find", "/resize 1024x768@2"} {
		if _, err := h.Handle(ctx, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	for _, call := range []string{"back", "forward", "reload", "stop", "find needle", "stop_finding", "resize 1024x768@2.0"} {
		if !engine.has(call) {
			t.Fatalf("expected %q, got %v", call, engine.calls)
		}
	}
}

func TestCommandsWithoutTabs(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	if _, err := h.Handle(context.Background(), "/back"); !errors.Is(err, schema.ErrNoTabs) {
		t.Fatalf("expected ErrNoTabs, got %v", err)
	}
	if _, err := h.Handle(context.Background(), "/close"); !errors.Is(err, schema.ErrNoTabs) {
		t.Fatalf("expected ErrNoTabs, got %v", err)
	}
}

func TestKeyShortcutRunsOnTick(t *testing.T) {
	h, svc, provider, _ := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, "/new"); err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := h.Handle(ctx, "/key ctrl+t"); err != nil {
		t.Fatalf("key: %v", err)
	}
	svc.Tick(ctx)
	if tabs, _ := svc.ListTabs(ctx); len(tabs) != 2 {
		t.Fatalf("expected shortcut to open a tab, got %d", len(tabs))
	}
	if _, err := h.Handle(ctx, "/key x"); err != nil {
		t.Fatalf("key: %v", err)
	}
	if !provider.last().has("key x") {
		t.Fatalf("expected plain key forwarded, got %v", provider.last().calls)
	}
}

func TestSwipeFiresBack(t *testing.T) {
	h, svc, provider, out := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, "/new"); err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := h.Handle(ctx, "/swipe back"); err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if !strings.Contains(out.String(), "swipe: back") {
		t.Fatalf("unexpected output %q", out.String())
	}
	svc.Tick(ctx)
	if !provider.last().has("back") {
		t.Fatalf("expected back after tick, got %v", provider.last().calls)
	}
}

func TestHistoryCommand(t *testing.T) {
	h, svc, provider, out := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, "/new"); err != nil {
		t.Fatalf("new: %v", err)
	}
	client := provider.last().client
	client.Load.OnLoadingStateChange(true, false, false)
	client.Display.OnAddressChange("https://pkg.go.dev/")
	client.Display.OnTitleChange("Go Packages")
	client.Load.OnLoadingStateChange(false, false, false)
	svc.Tick(ctx)

	out.Reset()
	if _, err := h.Handle(ctx, "/history pkg"); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out.String(), "https://pkg.go.dev/") {
		t.Fatalf("expected match, got %q", out.String())
	}
	if _, err := h.Handle(ctx, "/history"); err == nil {
		t.Fatalf("expected usage error")
	}
}

func TestMenuCommand(t *testing.T) {
	h, svc, provider, out := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, "/new"); err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := h.Handle(ctx, "/menu"); !errors.Is(err, schema.ErrNoContextMenu) {
		t.Fatalf("expected ErrNoContextMenu, got %v", err)
	}
	provider.last().client.ContextMenu.RunContextMenu(&adapters.ContextMenuParams{LinkURL: "https://x.example"}, nil)
	svc.Tick(ctx)
	out.Reset()
	if _, err := h.Handle(ctx, "/menu"); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if !strings.Contains(out.String(), "copy_link_address") {
		t.Fatalf("expected link entries, got %q", out.String())
	}
	out.Reset()
	if _, err := h.Handle(ctx, "/menu copy_link_address"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(out.String(), "clipboard: https://x.example") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestStatusAndUnknown(t *testing.T) {
	h, _, _, out := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, "/new example.com"); err != nil {
		t.Fatalf("new: %v", err)
	}
	out.Reset()
	if _, err := h.Handle(ctx, "/status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"tabs:", "url:", "https://example.com", "gesture:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in %q", want, out.String())
		}
	}
	if _, err := h.Handle(ctx, "/bogus"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestParseGeometry(t *testing.T) {
	cases := []struct {
		in      string
		w, h    int
		scale   float64
		wantErr bool
	}{
		{in: "800x600", w: 800, h: 600},
		{in: "1280x720@1.5", w: 1280, h: 720, scale: 1.5},
		{in: "800", wantErr: true},
		{in: "axb", wantErr: true},
		{in: "10x10@x", wantErr: true},
	}
	for _, tc := range cases {
		w, h, scale, err := parseGeometry(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil || w != tc.w || h != tc.h || scale != tc.scale {
			t.Fatalf("%s: got %d %d %v %v", tc.in, w, h, scale, err)
		}
	}
}

func TestAuditLog(t *testing.T) {
	var buf bytes.Buffer
	logger := pslog.NewWithOptions(&buf, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		VerboseFields: true,
		MinLevel:      pslog.DebugLevel,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	h, _, _, _ := newTestHandler(t)
	if _, err := h.Handle(ctx, "/help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !hasAuditCommand(buf.String(), "slash", "/help") {
		t.Fatalf("expected audit log entry, got %q", buf.String())
	}

	buf.Reset()
	h.cfg.DisableAuditLogging = true
	if _, err := h.Handle(ctx, "/help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if hasAuditCommand(buf.String(), "slash", "/help") {
		t.Fatalf("expected no audit entry when disabled")
	}
}

func hasAuditCommand(logs, commandType, command string) bool {
	for _, line := range strings.Split(logs, "\n") {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			continue
		}
		msg, _ := payload["msg"].(string)
		if msg == "" {
			msg, _ = payload["message"].(string)
		}
		if msg != "audit command" {
			continue
		}
		if payload["command_type"] == commandType && payload["command"] == command {
			return true
		}
	}
	return false
}

func TestPinAndCloseOthersCommands(t *testing.T) {
	h, svc, _, out := newTestHandler(t)
	ctx := context.Background()
	for _, line := range []string{"/new a.example", "/new b.example", "/new c.example", "/pin 3"} {
		if _, err := h.Handle(ctx, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	tabs, _ := svc.ListTabs(ctx)
	if !tabs[0].Pinned || tabs[0].State.URL != "https://c.example" {
		t.Fatalf("expected pinned tab first, got %+v", tabs)
	}
	out.Reset()
	if _, err := h.Handle(ctx, "/tabs"); err != nil {
		t.Fatalf("tabs: %v", err)
	}
	if !strings.Contains(out.String(), "[pinned]") {
		t.Fatalf("expected pinned marker, got %q", out.String())
	}
	if _, err := h.Handle(ctx, "/closeothers 2"); err != nil {
		t.Fatalf("closeothers: %v", err)
	}
	tabs, active := svc.ListTabs(ctx)
	if len(tabs) != 2 || active != tabs[1].ID || tabs[1].State.URL != "https://a.example" {
		t.Fatalf("expected pinned and kept tab, got %+v", tabs)
	}
	if _, err := h.Handle(ctx, "/unpin 1"); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if tabs, _ := svc.ListTabs(ctx); tabs[0].Pinned {
		t.Fatalf("expected tab unpinned")
	}
	if _, err := h.Handle(ctx, "/pin 1 2"); err == nil {
		t.Fatalf("expected usage error")
	}
}

func TestBookmarkCommands(t *testing.T) {
	h, svc, _, out := newTestHandler(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, "/bookmark"); !errors.Is(err, schema.ErrNoTabs) {
		t.Fatalf("expected ErrNoTabs, got %v", err)
	}
	if _, err := h.Handle(ctx, "/new"); err != nil {
		t.Fatalf("new: %v", err)
	}
	out.Reset()
	if _, err := h.Handle(ctx, "/bookmark"); err != nil {
		t.Fatalf("bookmark new tab: %v", err)
	}
	if !strings.Contains(out.String(), "cannot be bookmarked") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if _, err := h.Handle(ctx, "/new go.dev"); err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, line := range []string{"/bookmark add", "/bookmark folder Go Stuff", "/bookmark move https://go.dev 1"} {
		if _, err := h.Handle(ctx, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if !svc.IsBookmarked("https://go.dev") {
		t.Fatalf("expected go.dev bookmarked")
	}
	out.Reset()
	if _, err := h.Handle(ctx, "/bookmark list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	want := "  [1] Go Stuff/\n      https://go.dev\nbar: visible\n"
	if out.String() != want {
		t.Fatalf("unexpected listing %q", out.String())
	}
	if _, err := h.Handle(ctx, "/bookmark rmfolder 7"); !errors.Is(err, schema.ErrFolderNotFound) {
		t.Fatalf("expected ErrFolderNotFound, got %v", err)
	}
	if _, err := h.Handle(ctx, "/bookmark remove"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := h.Handle(ctx, "/bookmark remove https://go.dev"); !errors.Is(err, schema.ErrBookmarkNotFound) {
		t.Fatalf("expected ErrBookmarkNotFound, got %v", err)
	}
	if _, err := h.Handle(ctx, "/bookmark bogus"); err == nil {
		t.Fatalf("expected usage error")
	}
}
