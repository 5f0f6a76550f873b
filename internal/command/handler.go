package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"pkt.systems/glass/core"
	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/internal/contextmenu"
	"pkt.systems/glass/internal/gesture"
	"pkt.systems/glass/internal/logx"
	"pkt.systems/glass/internal/version"
	"pkt.systems/glass/schema"
)

const defaultSearchTimeout = 2 * time.Second

// swipeStep is the per-sample delta of a synthetic swipe.
const swipeStep = 40.0

// HandlerConfig configures slash command behavior.
type HandlerConfig struct {
	SearchURL string
	// SearchTimeout bounds /history. Zero uses two seconds.
	SearchTimeout       time.Duration
	DisableAuditLogging bool
}

// Handler routes console input to service operations and writes the
// replies to out.
type Handler struct {
	service core.Service
	cfg     HandlerConfig

	outMu sync.Mutex
	out   io.Writer
}

// NewHandler constructs a command handler.
func NewHandler(service core.Service, out io.Writer, cfg HandlerConfig) *Handler {
	if cfg.SearchURL == "" {
		cfg.SearchURL = schema.DefaultSearchURL
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}
	if out == nil {
		out = io.Discard
	}
	return &Handler{service: service, cfg: cfg, out: out}
}

// Handle executes one line of input. Slash commands are routed by name,
// anything else is navigated to like address bar input. It reports false
// for blank input.
func (h *Handler) Handle(ctx context.Context, input string) (bool, error) {
	if ctx == nil {
		return false, errors.New("missing context")
	}
	if strings.TrimSpace(input) == "" {
		return false, nil
	}
	_, active := h.service.ListTabs(ctx)
	log := logx.WithTab(ctx, active).With("input_len", len(input))
	ctx = logx.ContextWithTabLogger(ctx, log, active)
	cmd, ok := Parse(input)
	if !ok {
		if !h.cfg.DisableAuditLogging {
			log.Debug("audit command", "command_type", "address", "command", strings.TrimSpace(input))
		}
		return true, h.open(ctx, active, strings.TrimSpace(input))
	}
	if !h.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", "slash", "command", strings.TrimSpace(input))
	}
	log = log.With("command", cmd.Name, "args", len(cmd.Args))
	log.Info("command slash request")
	switch cmd.Name {
	case "":
		log.Warn("command slash rejected", "reason", "empty")
		return true, errors.New("invalid command")
	case "open", "go":
		if cmd.Remainder == "" {
			return true, errors.New("usage: /open <url|search>")
		}
		return true, h.open(ctx, active, cmd.Remainder)
	case "new":
		return true, h.handleNew(ctx, cmd)
	case "close":
		return true, h.handleClose(ctx, active, cmd)
	case "tab":
		return true, h.handleTab(ctx, cmd)
	case "tabs":
		return true, h.handleTabs(ctx)
	case "pin":
		return true, h.handlePin(ctx, active, cmd, true)
	case "unpin":
		return true, h.handlePin(ctx, active, cmd, false)
	case "closeothers":
		return true, h.handleCloseOthers(ctx, active, cmd)
	case "bookmark", "bookmarks":
		return true, h.handleBookmark(ctx, active, cmd)
	case "back":
		return true, h.service.GoBack(ctx, active)
	case "forward":
		return true, h.service.GoForward(ctx, active)
	case "reload":
		return true, h.service.Reload(ctx, active)
	case "stop":
		return true, h.service.Stop(ctx, active)
	case "find":
		return true, h.handleFind(ctx, active, cmd)
	case "history":
		return true, h.handleHistory(ctx, cmd)
	case "menu":
		return true, h.handleMenu(ctx, active, cmd)
	case "resize":
		return true, h.handleResize(ctx, cmd)
	case "key":
		return true, h.handleKey(ctx, active, cmd)
	case "swipe":
		return true, h.handleSwipe(ctx, active, cmd)
	case "run":
		if len(cmd.Args) != 1 {
			return true, errors.New("usage: /run <command>")
		}
		return true, h.service.RunCommand(ctx, active, cmd.Args[0])
	case "save":
		if err := h.service.SaveNow(ctx); err != nil {
			log.Warn("command save failed", "err", err)
			return true, err
		}
		h.println("session saved")
		return true, nil
	case "status":
		return true, h.handleStatus(ctx, active)
	case "help":
		h.println(helpLines()...)
		return true, nil
	case "version":
		h.println("glass " + version.CurrentWithDirty())
		return true, nil
	default:
		log.Warn("command slash rejected", "reason", "unknown")
		return true, fmt.Errorf("unknown command: /%s", cmd.Name)
	}
}

func (h *Handler) open(ctx context.Context, active schema.TabID, input string) error {
	log := logx.Ctx(ctx)
	if active == "" {
		url, err := schema.NormalizeNavigationInput(input, h.cfg.SearchURL)
		if err != nil {
			return err
		}
		snap, err := h.service.CreateTab(ctx, url, true)
		if err != nil {
			log.Warn("command open failed", "err", err)
			return err
		}
		h.println("opened: " + snap.State.URL)
		return nil
	}
	url, err := h.service.Navigate(ctx, active, input)
	if err != nil {
		log.Warn("command open failed", "err", err)
		return err
	}
	h.println("navigating: " + url)
	return nil
}

func (h *Handler) handleNew(ctx context.Context, cmd Command) error {
	url := schema.NewTabURL
	if cmd.Remainder != "" {
		normalized, err := schema.NormalizeNavigationInput(cmd.Remainder, h.cfg.SearchURL)
		if err != nil {
			return err
		}
		url = normalized
	}
	snap, err := h.service.CreateTab(ctx, url, true)
	if err != nil {
		logx.Ctx(ctx).Warn("command new failed", "err", err)
		return err
	}
	h.println(fmt.Sprintf("tab opened: %s", snap.State.URL))
	return nil
}

func (h *Handler) handleClose(ctx context.Context, active schema.TabID, cmd Command) error {
	target := active
	if len(cmd.Args) > 1 {
		return errors.New("usage: /close [tab]")
	}
	if len(cmd.Args) == 1 {
		tabs, _ := h.service.ListTabs(ctx)
		id, err := resolveTabRef(cmd.Args[0], tabs)
		if err != nil {
			return err
		}
		target = id
	}
	if target == "" {
		return schema.ErrNoTabs
	}
	if err := h.service.CloseTab(ctx, target); err != nil {
		logx.WithTab(ctx, target).Warn("command close failed", "err", err)
		return err
	}
	h.println("tab closed")
	return nil
}

func (h *Handler) handleTab(ctx context.Context, cmd Command) error {
	if len(cmd.Args) != 1 {
		return errors.New("usage: /tab <index|id>")
	}
	tabs, _ := h.service.ListTabs(ctx)
	id, err := resolveTabRef(cmd.Args[0], tabs)
	if err != nil {
		return err
	}
	return h.service.ActivateTab(ctx, id)
}

func (h *Handler) handleTabs(ctx context.Context) error {
	tabs, active := h.service.ListTabs(ctx)
	if len(tabs) == 0 {
		h.println("no tabs")
		return nil
	}
	lines := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		lines = append(lines, formatTabLine(i+1, tab, tab.ID == active))
	}
	h.println(lines...)
	return nil
}

func (h *Handler) handleFind(ctx context.Context, active schema.TabID, cmd Command) error {
	if cmd.Remainder == "" {
		return h.service.StopFinding(ctx, active, true)
	}
	return h.service.Find(ctx, active, cmd.Remainder, true, false)
}

func (h *Handler) handleHistory(ctx context.Context, cmd Command) error {
	if cmd.Remainder == "" {
		return errors.New("usage: /history <query>")
	}
	pending := h.service.SearchHistory(ctx, cmd.Remainder)
	timer := time.NewTimer(h.cfg.SearchTimeout)
	defer timer.Stop()
	select {
	case matches := <-pending.Results():
		if len(matches) == 0 {
			h.println("no matches")
			return nil
		}
		lines := make([]string, 0, len(matches))
		for _, m := range matches {
			lines = append(lines, fmt.Sprintf("%6.2f  %s  %s", m.Score, m.URL, m.Title))
		}
		h.println(lines...)
		return nil
	case <-timer.C:
		pending.Cancel()
		return errors.New("history search timed out")
	case <-ctx.Done():
		pending.Cancel()
		return ctx.Err()
	}
}

func (h *Handler) handleMenu(ctx context.Context, active schema.TabID, cmd Command) error {
	switch cmd.Arg(0) {
	case "":
		menu, ok := h.service.ContextMenu(active)
		if !ok {
			return schema.ErrNoContextMenu
		}
		h.println(formatMenu(menu)...)
		return nil
	case "dismiss":
		if !h.service.DismissContextMenu(active) {
			return schema.ErrNoContextMenu
		}
		return nil
	}
	action, err := h.service.SelectContextMenuItem(ctx, active, contextmenu.Command(cmd.Arg(0)))
	if err != nil {
		return err
	}
	if action.Kind == contextmenu.ActionClipboard {
		h.println("clipboard: " + action.Text)
	}
	return nil
}

func (h *Handler) handleResize(ctx context.Context, cmd Command) error {
	if len(cmd.Args) != 1 {
		return errors.New("usage: /resize <width>x<height>[@scale]")
	}
	width, height, scale, err := parseGeometry(cmd.Args[0])
	if err != nil {
		return err
	}
	return h.service.Resize(ctx, width, height, scale)
}

func (h *Handler) handleKey(ctx context.Context, active schema.TabID, cmd Command) error {
	if len(cmd.Args) != 1 {
		return errors.New("usage: /key <chord>")
	}
	event := adapters.ParseChord(cmd.Args[0])
	if event.Key == "" {
		return fmt.Errorf("invalid chord: %s", cmd.Args[0])
	}
	return h.service.SendKey(ctx, active, event)
}

// handleSwipe plays a synthetic horizontal trackpad swipe through the
// gesture navigator.
func (h *Handler) handleSwipe(ctx context.Context, active schema.TabID, cmd Command) error {
	var dx float64
	switch cmd.Arg(0) {
	case "back":
		dx = swipeStep
	case "forward":
		dx = -swipeStep
	default:
		return errors.New("usage: /swipe back|forward")
	}
	samples := []gesture.Sample{{Phase: gesture.SampleStart}}
	for i := 0; i < 5; i++ {
		samples = append(samples, gesture.Sample{Phase: gesture.SampleMoved, DX: dx})
	}
	samples = append(samples, gesture.Sample{Phase: gesture.SampleEnd})
	var fired gesture.Direction
	for _, sample := range samples {
		res, err := h.service.Scroll(ctx, active, sample)
		if err != nil {
			return err
		}
		if res.Fired != gesture.DirectionNone {
			fired = res.Fired
		}
	}
	h.println("swipe: " + fired.String())
	return nil
}

func (h *Handler) handleStatus(ctx context.Context, active schema.TabID) error {
	tabs, _ := h.service.ListTabs(ctx)
	labels := []string{"tabs", "url", "title", "loading", "progress", "error", "gesture"}
	width := maxLabelWidth(labels)
	lines := []string{formatStatusLine("tabs", strconv.Itoa(len(tabs)), width)}
	if active != "" {
		snap, err := h.service.Tab(active)
		if err != nil {
			return err
		}
		errText := "none"
		if snap.LastError != nil {
			errText = snap.LastError.Error()
		}
		lines = append(lines,
			formatStatusLine("url", snap.State.URL, width),
			formatStatusLine("title", snap.State.Title, width),
			formatStatusLine("loading", strconv.FormatBool(snap.State.IsLoading), width),
			formatStatusLine("progress", fmt.Sprintf("%.0f%%", snap.Progress*100), width),
			formatStatusLine("error", errText, width),
		)
	}
	lines = append(lines, formatStatusLine("gesture", h.service.Gesture().Phase.String(), width))
	h.println(lines...)
	return nil
}

func (h *Handler) println(lines ...string) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	for _, line := range lines {
		_, _ = io.WriteString(h.out, line+"\n")
	}
}

func helpLines() []string {
	return []string{
		"commands:",
		"  <url|search>          navigate the active tab",
		"  /open <url|search>    navigate the active tab",
		"  /new [url]            open a tab",
		"  /close [tab]          close a tab",
		"  /tab <tab>            activate a tab by index or id",
		"  /tabs                 list tabs",
		"  /pin /unpin [tab]     pin or unpin a tab",
		"  /closeothers [tab]    close every other unpinned tab",
		"  /bookmark [sub]       add, remove, list, folder, rmfolder, move, bar",
		"  /back /forward        history navigation",
		"  /reload /stop         reload or stop loading",
		"  /find [text]          find in page, no text stops",
		"  /history <query>      search history",
		"  /menu [item|dismiss]  show or resolve the context menu",
		"  /resize WxH[@scale]   resize the view",
		"  /key <chord>          send a key, e.g. ctrl+t",
		"  /swipe back|forward   play a trackpad swipe",
		"  /run <command>        run a host command",
		"  /save                 write the session now",
		"  /status /version /help",
	}
}

func formatTabLine(index int, tab schema.TabSnapshot, active bool) string {
	marker := " "
	if active {
		marker = "*"
	}
	state := ""
	if tab.Pinned {
		state += " [pinned]"
	}
	if tab.State.IsLoading {
		state += " (loading)"
	}
	return fmt.Sprintf("%s %d  %s  %s%s", marker, index, tab.State.Title, tab.State.URL, state)
}

func formatMenu(menu contextmenu.Menu) []string {
	lines := make([]string, 0, len(menu.Items))
	for _, item := range menu.Items {
		if item.Separator {
			lines = append(lines, "  ----")
			continue
		}
		lines = append(lines, fmt.Sprintf("  %-22s %s", item.Command, item.Label))
	}
	return lines
}

func maxLabelWidth(labels []string) int {
	width := 0
	for _, label := range labels {
		width = max(width, len(label)+1)
	}
	return width
}

func formatStatusLine(label, value string, labelWidth int) string {
	if labelWidth <= 0 {
		labelWidth = len(label) + 1
	}
	if strings.TrimSpace(value) == "" {
		value = "unknown"
	}
	return fmt.Sprintf("%-*s %s", labelWidth, label+":", value)
}

func resolveTabRef(ref string, tabs []schema.TabSnapshot) (schema.TabID, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx <= 0 || idx > len(tabs) {
			return "", errors.New("tab index out of range")
		}
		return tabs[idx-1].ID, nil
	}
	for _, tab := range tabs {
		if string(tab.ID) == ref {
			return tab.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", schema.ErrTabNotFound, ref)
}

func parseGeometry(value string) (int, int, float64, error) {
	size, scaleText, hasScale := strings.Cut(value, "@")
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid geometry: %s", value)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid width: %w", err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid height: %w", err)
	}
	scale := 0.0
	if hasScale {
		scale, err = strconv.ParseFloat(scaleText, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid scale: %w", err)
		}
	}
	return width, height, scale, nil
}
