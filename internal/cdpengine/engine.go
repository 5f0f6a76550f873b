package cdpengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/internal/appconfig"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

const (
	commandQueueSize = 64
	closeTimeout     = 5 * time.Second
)

var (
	// ErrEngineClosed is returned by commands issued after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrQueueFull is returned when the tab cannot accept more commands.
	ErrQueueFull = errors.New("engine command queue full")
)

type command struct {
	name string
	fn   func(ctx context.Context) error
}

// Engine drives one Chrome page target. Commands are queued and executed in
// order on the engine's own goroutine so callers never block on the browser.
type Engine struct {
	id      schema.TabID
	client  *adapters.Client
	cfg     appconfig.EngineConfig
	log     pslog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	onClose func(*Engine)

	cmds   chan command
	frames chan *page.EventScreencastFrame
	done   chan struct{}

	closeOnce sync.Once

	mu        sync.Mutex
	closed    bool
	started   bool
	targetID  target.ID
	width     int
	height    int
	scale     float64
	url       string
	title     string
	canBack   bool
	canFwd    bool
	promptSeq uint64
	granted   map[string]bool
	surfaces  bool

	// Listener goroutine only.
	documents map[network.RequestID]string

	// Command goroutine only.
	find findState
}

func newEngine(ctx context.Context, cancel context.CancelFunc, req engineRequest, cfg appconfig.EngineConfig, logger pslog.Logger) *Engine {
	rect := req.client.Render.ViewRect()
	scale := req.client.Render.ScreenInfo().ScaleFactor
	if scale <= 0 {
		scale = schema.DefaultScaleFactor
	}
	return &Engine{
		id:        req.id,
		client:    req.client,
		cfg:       cfg,
		log:       logger,
		ctx:       ctx,
		cancel:    cancel,
		cmds:      make(chan command, commandQueueSize),
		frames:    make(chan *page.EventScreencastFrame, 1),
		done:      make(chan struct{}),
		width:     rect.Width,
		height:    rect.Height,
		scale:     scale,
		granted:   make(map[string]bool),
		surfaces:  cfg.SharedSurfaces,
		documents: make(map[network.RequestID]string),
	}
}

type engineRequest struct {
	id     schema.TabID
	client *adapters.Client
}

// TargetID returns the DevTools target of the tab.
func (e *Engine) TargetID() target.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.targetID
}

func (e *Engine) setTarget(id target.ID) {
	e.mu.Lock()
	e.targetID = id
	e.mu.Unlock()
}

func (e *Engine) isMainFrame(frameID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return frameID != "" && frameID == string(e.targetID)
}

func (e *Engine) viewSize() (int, int, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height, e.scale
}

func physical(size int, scale float64) int {
	return max(1, int(math.Round(float64(size)*scale)))
}

func (e *Engine) setupActions() []chromedp.Action {
	width, height, scale := e.viewSize()
	return []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			e.setTarget(chromedp.FromContext(ctx).Target.TargetID)
			return nil
		}),
		runtime.Enable(),
		runtime.AddBinding(bindingContextMenu),
		runtime.AddBinding(bindingOpenURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(pageScript).Do(ctx)
			return err
		}),
		emulation.SetDeviceMetricsOverride(int64(width), int64(height), scale, false),
		e.screencastParams(width, height, scale),
	}
}

func (e *Engine) screencastParams(width, height int, scale float64) *page.StartScreencastParams {
	params := page.StartScreencast().
		WithMaxWidth(int64(physical(width, scale))).
		WithMaxHeight(int64(physical(height, scale))).
		WithEveryNthFrame(int64(max(1, e.cfg.EveryNthFrame)))
	if e.cfg.ScreencastFormat == "png" {
		return params.WithFormat(page.ScreencastFormatPng)
	}
	return params.WithFormat(page.ScreencastFormatJpeg).WithQuality(int64(e.cfg.ScreencastQuality))
}

func (e *Engine) start() {
	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	go e.run()
	go e.pumpFrames()
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case cmd := <-e.cmds:
			if err := cmd.fn(e.ctx); err != nil && e.ctx.Err() == nil {
				e.log.Warn("engine command failed", "command", cmd.name, "err", err)
			}
		}
	}
}

func (e *Engine) enqueue(name string, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	select {
	case e.cmds <- command{name: name, fn: fn}:
		e.log.Trace("engine command queued", "command", name)
		return nil
	default:
		return fmt.Errorf("%s: %w", name, ErrQueueFull)
	}
}

// Navigate loads url in the tab.
func (e *Engine) Navigate(url string) error {
	return e.enqueue("navigate", func(ctx context.Context) error {
		return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errorText, _, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				e.log.Debug("engine navigation failed", "url", url, "error_text", errorText)
			}
			return nil
		}))
	})
}

// GoBack moves one entry back in the tab's history.
func (e *Engine) GoBack() error {
	return e.enqueue("back", func(ctx context.Context) error {
		return e.stepHistory(ctx, -1)
	})
}

// GoForward moves one entry forward in the tab's history.
func (e *Engine) GoForward() error {
	return e.enqueue("forward", func(ctx context.Context) error {
		return e.stepHistory(ctx, 1)
	})
}

func (e *Engine) stepHistory(ctx context.Context, delta int) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		current, entries, err := page.GetNavigationHistory().Do(ctx)
		if err != nil {
			return err
		}
		next := int(current) + delta
		if next < 0 || next >= len(entries) {
			e.log.Debug("engine history step out of range", "index", current, "delta", delta)
			return nil
		}
		return page.NavigateToHistoryEntry(entries[next].ID).Do(ctx)
	}))
}

// Reload reloads the current page.
func (e *Engine) Reload() error {
	return e.enqueue("reload", func(ctx context.Context) error {
		return chromedp.Run(ctx, page.Reload())
	})
}

// Stop stops the current load.
func (e *Engine) Stop() error {
	return e.enqueue("stop", func(ctx context.Context) error {
		return chromedp.Run(ctx, page.StopLoading())
	})
}

// Resize changes the emulated view and restarts the screencast at the new size.
func (e *Engine) Resize(width, height int, scale float64) error {
	if width <= 0 || height <= 0 || scale <= 0 {
		return fmt.Errorf("invalid view size %dx%d@%v", width, height, scale)
	}
	e.mu.Lock()
	e.width, e.height, e.scale = width, height, scale
	e.mu.Unlock()
	return e.enqueue("resize", func(ctx context.Context) error {
		return chromedp.Run(ctx,
			emulation.SetDeviceMetricsOverride(int64(width), int64(height), scale, false),
			page.StopScreencast(),
			e.screencastParams(width, height, scale),
		)
	})
}

// Scroll sends a mouse wheel event at the centre of the view.
func (e *Engine) Scroll(dx, dy float64) error {
	width, height, _ := e.viewSize()
	return e.enqueue("scroll", func(ctx context.Context) error {
		return chromedp.Run(ctx, input.DispatchMouseEvent(input.MouseWheel, float64(width)/2, float64(height)/2).
			WithDeltaX(dx).
			WithDeltaY(dy))
	})
}

// SendKey offers the event to the host shortcuts first and forwards it to
// the page when no shortcut consumed it.
func (e *Engine) SendKey(event schema.KeyEvent) error {
	if e.client.Keyboard.OnPreKeyEvent(event) {
		return nil
	}
	params := keyEventParams(event)
	return e.enqueue("key", func(ctx context.Context) error {
		actions := make([]chromedp.Action, 0, len(params))
		for _, p := range params {
			actions = append(actions, p)
		}
		return chromedp.Run(ctx, actions...)
	})
}

// Find searches the page and reports the match count and active ordinal.
func (e *Engine) Find(text string, forward, findNext bool) error {
	script := findScript(text, forward, findNext)
	return e.enqueue("find", func(ctx context.Context) error {
		var res findResult
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &res)); err != nil {
			return err
		}
		id, ordinal := e.find.advance(text, forward, findNext, res)
		e.client.Find.OnFindResult(id, res.Count, ordinal, true)
		return nil
	})
}

// StopFinding ends the search session.
func (e *Engine) StopFinding(clearSelection bool) error {
	return e.enqueue("stop_find", func(ctx context.Context) error {
		e.find.reset()
		if !clearSelection {
			return nil
		}
		return chromedp.Run(ctx, chromedp.Evaluate(clearSelectionScript, nil))
	})
}

// Edit runs an editing command in the focused frame.
func (e *Engine) Edit(cmd schema.EditCommand) error {
	script, err := editScript(cmd)
	if err != nil {
		return err
	}
	return e.enqueue("edit", func(ctx context.Context) error {
		return chromedp.Run(ctx, chromedp.Evaluate(script, nil))
	})
}

// ShowDevTools logs the target so a DevTools front end can attach to it.
func (e *Engine) ShowDevTools() error {
	e.log.Info("engine devtools requested", "target", e.TargetID())
	return nil
}

// Close closes the page target and stops the engine goroutines.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		started := e.started
		e.mu.Unlock()

		if e.client.LifeSpan.DoClose() {
			e.log.Debug("engine close handled by client")
		}
		if e.onClose != nil {
			e.onClose(e)
		}
		if started {
			if cerr := chromedp.Cancel(e.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
				err = fmt.Errorf("close target: %w", cerr)
			}
		}
		e.cancel()
		if started {
			select {
			case <-e.done:
			case <-time.After(closeTimeout):
				e.log.Warn("engine command loop did not stop")
			}
		}
		e.client.LifeSpan.OnBeforeClose()
		e.log.Info("engine closed")
	})
	return err
}
