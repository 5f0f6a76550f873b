package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/internal/bookmarks"
	"pkt.systems/glass/internal/contextmenu"
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/internal/gesture"
	"pkt.systems/glass/internal/history"
	"pkt.systems/glass/internal/logx"
	"pkt.systems/glass/internal/persist"
	"pkt.systems/glass/internal/render"
	"pkt.systems/glass/internal/workpool"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// DefaultTickInterval paces Run when nothing wakes it earlier.
const DefaultTickInterval = 16 * time.Millisecond

const maxClosedTabs = 20

// service implements the core service behavior.
type service struct {
	cfg     schema.BrowserConfig
	engines EngineProvider
	store   *persist.Store
	pool    *workpool.Pool
	ownPool bool
	sink    EventSink
	logger  pslog.Logger
	now     func() time.Time
	tickDur time.Duration

	effects   *effectQueue
	menus     *contextmenu.Bridge
	history   *history.Store
	bookmarks *bookmarks.Store
	searcher  *history.Searcher

	gmu     sync.Mutex
	gesture *gesture.Navigator
	// gestureTab is the tab the current swipe scrolls.
	gestureTab schema.TabID

	mu         sync.Mutex
	tabs       map[schema.TabID]*tab
	order      []schema.TabID
	active     schema.TabID
	closedURLs []string
	saveAt     time.Time
	saveSeq    uint64
	closed     bool
	// sessionHeld keeps saves from overwriting tabs a failed restore skipped.
	sessionHeld bool

	wmu     sync.Mutex
	written uint64
}

// NewService constructs the core service implementation.
func NewService(cfg schema.BrowserConfig, deps ServiceDeps) (Service, error) {
	cfg = schema.NormalizeBrowserConfig(cfg)
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	tickDur := deps.TickInterval
	if tickDur <= 0 {
		tickDur = DefaultTickInterval
	}
	pool := deps.Pool
	ownPool := false
	if pool == nil {
		pool = workpool.New(pslog.ContextWithLogger(context.Background(), logger), 0)
		ownPool = true
	}
	s := &service{
		cfg:      cfg,
		engines:  deps.Engines,
		store:    deps.Store,
		pool:     pool,
		ownPool:  ownPool,
		sink:     deps.EventSink,
		logger:   logger,
		now:      now,
		tickDur:  tickDur,
		effects:  newEffectQueue(),
		menus:    contextmenu.NewBridge(logger),
		searcher: history.NewSearcher(pool),
		tabs:     make(map[schema.TabID]*tab),
	}
	entries, err := s.loadHistory()
	if err != nil {
		return nil, err
	}
	s.history = history.NewStore(entries, history.WithMaxEntries(cfg.HistoryMaxEntries), history.WithClock(now))
	s.bookmarks = bookmarks.NewStore(s.loadBookmarks())
	scheduler := deps.GestureScheduler
	if scheduler == nil {
		scheduler = hostScheduler{post: s.Post, lock: &s.gmu}
	}
	s.gesture = gesture.New(deps.Gesture, scheduler, s.onGestureNavigate)
	return s, nil
}

func (s *service) loadHistory() ([]schema.HistoryEntry, error) {
	if s.store == nil {
		return nil, nil
	}
	var entries []schema.HistoryEntry
	ok, err := s.store.Get(persist.KeyHistory, &entries)
	if err != nil {
		// Corrupt history starts empty.
		s.logger.Warn("service history load failed", "err", err)
		return nil, nil
	}
	if !ok {
		s.logger.Debug("service history missing")
		return nil, nil
	}
	s.logger.Debug("service history loaded", "entries", len(entries))
	return entries, nil
}

func (s *service) loadBookmarks() schema.BookmarkSnapshot {
	var snapshot schema.BookmarkSnapshot
	if s.store == nil {
		return snapshot
	}
	ok, err := s.store.Get(persist.KeyBookmarks, &snapshot)
	if err != nil {
		s.logger.Warn("service bookmarks load failed", "err", err)
		return schema.BookmarkSnapshot{}
	}
	if ok {
		s.logger.Debug("service bookmarks loaded", "bookmarks", len(snapshot.Bookmarks), "folders", len(snapshot.Folders))
	}
	return snapshot
}

func (s *service) CreateTab(ctx context.Context, url string, activate bool) (schema.TabSnapshot, error) {
	if ctx == nil {
		return schema.TabSnapshot{}, errors.New("missing context")
	}
	if s.engines == nil {
		return schema.TabSnapshot{}, schema.ErrEngineUnavailable
	}
	if url == "" {
		url = schema.NewTabURL
	}
	id := newTabID()
	log := logx.WithURL(logx.WithTab(ctx, id), url)
	log.Info("service tab create start", "activate", activate)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.TabSnapshot{}, schema.ErrServiceClosed
	}
	width, height, scale := s.cfg.ViewWidth, s.cfg.ViewHeight, s.cfg.ScaleFactor
	s.mu.Unlock()

	tabLog := s.logger.With("tab", id)
	events := eventbridge.New(tabLog)
	frames := render.NewBridge(tabLog)
	frames.SetSize(width, height)
	frames.SetScaleFactor(scale)
	client := adapters.NewClient(events, frames, adapters.ClientOptions{
		Shortcuts:   s.cfg.Shortcuts,
		DownloadDir: s.cfg.DownloadDir,
		Logger:      tabLog,
	})
	t := &tab{
		ID:     id,
		nav:    NewNavigationState(),
		client: client,
		events: events,
		frames: frames,
	}
	t.nav.URL = url
	engine, err := s.engines.Start(logx.ContextWithTabLogger(ctx, tabLog, id), EngineRequest{TabID: id, URL: url, Client: client})
	if err != nil {
		t.close()
		log.Error("service tab create failed", "err", err)
		return schema.TabSnapshot{}, fmt.Errorf("start engine for tab %s: %w", id, err)
	}
	t.engine = engine

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = engine.Close()
		t.close()
		return schema.TabSnapshot{}, schema.ErrServiceClosed
	}
	s.tabs[id] = t
	s.order = append(s.order, id)
	if activate || s.active == "" {
		s.active = id
	}
	active := s.active
	snapshot := t.Snapshot(active == id)
	s.markDirtyLocked()
	s.mu.Unlock()

	if active == id {
		s.resetGesture()
	}
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventCreated, Tab: snapshot, ActiveTab: active})
	log.Info("service tab created", "active", active == id)
	return snapshot, nil
}

func (s *service) CloseTab(ctx context.Context, id schema.TabID) error {
	log := logx.WithTab(ctx, id)
	s.mu.Lock()
	t := s.tabs[id]
	if t == nil {
		s.mu.Unlock()
		log.Warn("service tab close failed", "err", schema.ErrTabNotFound)
		return schema.ErrTabNotFound
	}
	idx := slices.Index(s.order, id)
	delete(s.tabs, id)
	s.order = slices.Delete(s.order, idx, idx+1)
	if t.nav.URL != "" && t.nav.URL != schema.NewTabURL {
		s.closedURLs = append(s.closedURLs, t.nav.URL)
		if len(s.closedURLs) > maxClosedTabs {
			s.closedURLs = s.closedURLs[len(s.closedURLs)-maxClosedTabs:]
		}
	}
	activeChanged := false
	if s.active == id {
		s.active = ""
		if len(s.order) > 0 {
			s.active = s.order[min(idx, len(s.order)-1)]
		}
		activeChanged = true
	}
	active := s.active
	snapshot := t.Snapshot(false)
	s.markDirtyLocked()
	s.mu.Unlock()

	s.menus.Forget(id)
	if activeChanged {
		s.resetGesture()
	}
	if err := t.engine.Close(); err != nil {
		log.Warn("service engine close failed", "err", err)
	}
	t.close()
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventClosed, Tab: snapshot, ActiveTab: active})
	log.Info("service tab closed", "active", active)
	return nil
}

func (s *service) ActivateTab(ctx context.Context, id schema.TabID) error {
	log := logx.WithTab(ctx, id)
	s.mu.Lock()
	t := s.tabs[id]
	if t == nil {
		s.mu.Unlock()
		log.Warn("service tab activate failed", "err", schema.ErrTabNotFound)
		return schema.ErrTabNotFound
	}
	changed := s.active != id
	s.active = id
	snapshot := t.Snapshot(true)
	if changed {
		s.markDirtyLocked()
	}
	s.mu.Unlock()
	if !changed {
		return nil
	}
	s.resetGesture()
	s.emitTabEvent(schema.TabEvent{Type: schema.TabEventActivated, Tab: snapshot, ActiveTab: id})
	log.Info("service tab activated")
	return nil
}

func (s *service) ListTabs(ctx context.Context) ([]schema.TabSnapshot, schema.TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]schema.TabSnapshot, 0, len(s.order))
	for _, id := range s.order {
		if t := s.tabs[id]; t != nil {
			tabs = append(tabs, t.Snapshot(id == s.active))
		}
	}
	pslog.Ctx(ctx).Trace("service tabs listed", "count", len(tabs), "active", s.active)
	return tabs, s.active
}

func (s *service) Tab(id schema.TabID) (schema.TabSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tabs[id]
	if t == nil {
		return schema.TabSnapshot{}, schema.ErrTabNotFound
	}
	return t.Snapshot(id == s.active), nil
}

func (s *service) engineFor(id schema.TabID) (Engine, error) {
	_, engine, err := s.resolve(id)
	return engine, err
}

// resolve maps id, or the active tab when id is empty, to its engine.
func (s *service) resolve(id schema.TabID) (schema.TabID, Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, schema.ErrServiceClosed
	}
	if id == "" {
		id = s.active
		if id == "" {
			return "", nil, schema.ErrNoTabs
		}
	}
	t := s.tabs[id]
	if t == nil {
		return "", nil, schema.ErrTabNotFound
	}
	return id, t.engine, nil
}

func (s *service) Navigate(ctx context.Context, id schema.TabID, input string) (string, error) {
	url, err := schema.NormalizeNavigationInput(input, s.cfg.SearchURL)
	if err != nil {
		return "", err
	}
	engine, err := s.engineFor(id)
	if err != nil {
		return "", err
	}
	logx.WithURL(logx.WithTab(ctx, id), url).Info("service navigate")
	if err := engine.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	return url, nil
}

func (s *service) GoBack(ctx context.Context, id schema.TabID) error {
	return s.command(ctx, id, "back", Engine.GoBack)
}

func (s *service) GoForward(ctx context.Context, id schema.TabID) error {
	return s.command(ctx, id, "forward", Engine.GoForward)
}

func (s *service) Reload(ctx context.Context, id schema.TabID) error {
	return s.command(ctx, id, "reload", Engine.Reload)
}

func (s *service) Stop(ctx context.Context, id schema.TabID) error {
	return s.command(ctx, id, "stop", Engine.Stop)
}

func (s *service) command(ctx context.Context, id schema.TabID, name string, fn func(Engine) error) error {
	engine, err := s.engineFor(id)
	if err != nil {
		return err
	}
	logx.WithTab(ctx, id).Debug("service command", "command", name)
	if err := fn(engine); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (s *service) Resize(ctx context.Context, width, height int, scale float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid view size %dx%d", width, height)
	}
	s.mu.Lock()
	if scale <= 0 {
		scale = s.cfg.ScaleFactor
	}
	s.cfg.ViewWidth = width
	s.cfg.ViewHeight = height
	s.cfg.ScaleFactor = scale
	engines := make([]Engine, 0, len(s.order))
	for _, id := range s.order {
		t := s.tabs[id]
		t.frames.SetSize(width, height)
		t.frames.SetScaleFactor(scale)
		engines = append(engines, t.engine)
	}
	s.mu.Unlock()
	pslog.Ctx(ctx).Debug("service resize", "width", width, "height", height, "scale", scale)
	var errs []error
	for _, engine := range engines {
		if err := engine.Resize(width, height, scale); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *service) Scroll(ctx context.Context, id schema.TabID, sample gesture.Sample) (gesture.Result, error) {
	id, engine, err := s.resolve(id)
	if err != nil {
		return gesture.Result{}, err
	}
	s.gmu.Lock()
	s.gestureTab = id
	res := s.gesture.Handle(sample)
	s.gmu.Unlock()
	if res.Fired != gesture.DirectionNone {
		logx.WithTab(ctx, id).Debug("service gesture fired", "direction", res.Fired.String())
	}
	if !res.Consumed && sample.Phase == gesture.SampleMoved {
		if err := engine.Scroll(sample.DX, sample.DY); err != nil {
			return res, fmt.Errorf("scroll: %w", err)
		}
	}
	return res, nil
}

func (s *service) Gesture() gesture.State {
	s.gmu.Lock()
	defer s.gmu.Unlock()
	return s.gesture.State()
}

func (s *service) resetGesture() {
	s.gmu.Lock()
	s.gesture.Reset()
	s.gmu.Unlock()
}

// onGestureNavigate runs inside Navigator.Handle with gmu held.
func (s *service) onGestureNavigate(direction gesture.Direction) {
	id := s.gestureTab
	s.Post(func(ctx context.Context) {
		var err error
		switch direction {
		case gesture.DirectionBack:
			err = s.GoBack(ctx, id)
		case gesture.DirectionForward:
			err = s.GoForward(ctx, id)
		}
		if err != nil {
			s.logger.Warn("service gesture navigation failed", "tab", id, "direction", direction.String(), "err", err)
		}
	})
}

func (s *service) SendKey(ctx context.Context, id schema.TabID, event schema.KeyEvent) error {
	engine, err := s.engineFor(id)
	if err != nil {
		return err
	}
	logx.WithTab(ctx, id).Trace("service key", "type", event.Type, "key", event.Key)
	return engine.SendKey(event)
}

func (s *service) Find(ctx context.Context, id schema.TabID, text string, forward, findNext bool) error {
	engine, err := s.engineFor(id)
	if err != nil {
		return err
	}
	if text == "" {
		return s.StopFinding(ctx, id, true)
	}
	logx.WithTab(ctx, id).Debug("service find", "len", len(text), "forward", forward, "next", findNext)
	return engine.Find(text, forward, findNext)
}

func (s *service) StopFinding(ctx context.Context, id schema.TabID, clearSelection bool) error {
	engine, err := s.engineFor(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if t := s.tabs[id]; t != nil {
		t.find = nil
	}
	s.mu.Unlock()
	logx.WithTab(ctx, id).Debug("service find stop")
	return engine.StopFinding(clearSelection)
}

func (s *service) ContextMenu(id schema.TabID) (contextmenu.Menu, bool) {
	return s.menus.Pending(id)
}

func (s *service) DismissContextMenu(id schema.TabID) bool {
	return s.menus.Dismiss(id)
}

func (s *service) SelectContextMenuItem(ctx context.Context, id schema.TabID, cmd contextmenu.Command) (contextmenu.Action, error) {
	engine, err := s.engineFor(id)
	if err != nil {
		return contextmenu.Action{}, err
	}
	action, err := s.menus.Select(id, cmd)
	if err != nil {
		return contextmenu.Action{}, err
	}
	switch action.Kind {
	case contextmenu.ActionEdit:
		err = engine.Edit(action.Edit)
	case contextmenu.ActionNavigate:
		switch action.Command {
		case contextmenu.CommandBack:
			err = engine.GoBack()
		case contextmenu.CommandForward:
			err = engine.GoForward()
		case contextmenu.CommandReload:
			err = engine.Reload()
		}
	case contextmenu.ActionInspect:
		err = engine.ShowDevTools()
	case contextmenu.ActionOpenTab:
		_, err = s.CreateTab(ctx, action.URL, false)
	case contextmenu.ActionClipboard:
		// The host owns the clipboard.
	}
	if err != nil {
		return action, fmt.Errorf("context menu %s: %w", cmd, err)
	}
	return action, nil
}

func (s *service) Frame(id schema.TabID) (render.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = s.active
	}
	t := s.tabs[id]
	if t == nil {
		return render.Snapshot{}, schema.ErrTabNotFound
	}
	return t.frames.Latest(), nil
}

func (s *service) SearchHistory(ctx context.Context, query string) *history.Pending {
	return s.searcher.Search(ctx, s.history.Entries(), query, s.cfg.HistoryMaxResults)
}

func (s *service) HistoryEntries() []schema.HistoryEntry {
	return s.history.Entries()
}

func (s *service) Post(fn Effect) {
	s.effects.post(fn)
}

func (s *service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	saveErr := s.SaveNow(ctx)

	s.mu.Lock()
	s.closed = true
	tabs := make([]*tab, 0, len(s.order))
	for _, id := range s.order {
		tabs = append(tabs, s.tabs[id])
	}
	s.tabs = make(map[schema.TabID]*tab)
	s.order = nil
	s.active = ""
	s.mu.Unlock()

	s.searcher.Cancel()
	for _, t := range tabs {
		if err := t.engine.Close(); err != nil {
			s.logger.Warn("service engine close failed", "tab", t.ID, "err", err)
		}
		t.close()
	}
	var errs []error
	if saveErr != nil {
		errs = append(errs, saveErr)
	}
	if s.engines != nil {
		if err := s.engines.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ownPool {
		if err := s.pool.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info("service closed", "tabs", len(tabs))
	return errors.Join(errs...)
}

func (s *service) emitTabEvent(event schema.TabEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTabEvent(event)
}
