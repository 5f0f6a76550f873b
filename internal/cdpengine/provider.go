// Package cdpengine runs browser tabs in headless Chrome over the DevTools protocol.
package cdpengine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/glass/core"
	"pkt.systems/glass/internal/appconfig"
	"pkt.systems/pslog"
)

// ErrProviderClosed is returned by Start after Close.
var ErrProviderClosed = errors.New("engine provider closed")

// Provider starts one Chrome page target per tab in a shared browser process.
// The browser is launched on the first Start.
type Provider struct {
	cfg appconfig.EngineConfig
	log pslog.Logger

	mu            sync.Mutex
	closed        bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	engines       map[target.ID]*Engine
	downloads     map[string]*download
}

// NewProvider constructs a Provider.
func NewProvider(cfg appconfig.EngineConfig, logger pslog.Logger) *Provider {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Provider{
		cfg:       cfg,
		log:       logger,
		engines:   make(map[target.ID]*Engine),
		downloads: make(map[string]*download),
	}
}

var _ core.EngineProvider = (*Provider)(nil)

func allocatorOptions(cfg appconfig.EngineConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.NoFirstRun, chromedp.NoDefaultBrowserCheck)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false), chromedp.Flag("hide-scrollbars", false))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	return opts
}

func (p *Provider) ensureBrowser() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.browserCtx != nil {
		return p.browserCtx, nil
	}
	if p.cfg.UserDataDir != "" {
		if err := os.MkdirAll(p.cfg.UserDataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(p.cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			p.log.Trace("chromedp", "detail", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			p.log.Debug("chromedp error", "detail", fmt.Sprintf(format, args...))
		}),
	)
	chromedp.ListenBrowser(browserCtx, p.handleBrowserEvent)
	if err := chromedp.Run(browserCtx, chromedp.ActionFunc(p.configureDownloads)); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel
	p.log.Info("engine browser started", "headless", p.cfg.Headless, "profile", p.cfg.UserDataDir)
	return browserCtx, nil
}

func (p *Provider) configureDownloads(ctx context.Context) error {
	if p.cfg.DownloadDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.cfg.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	return browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(p.cfg.DownloadDir).
		WithEventsEnabled(true).
		Do(cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Browser))
}

// Start opens a page target for the tab and navigates it to req.URL.
func (p *Provider) Start(ctx context.Context, req core.EngineRequest) (core.Engine, error) {
	if req.Client == nil {
		return nil, errors.New("engine request missing adapter client")
	}
	browserCtx, err := p.ensureBrowser()
	if err != nil {
		return nil, err
	}
	log := pslog.Ctx(ctx)

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	e := newEngine(tabCtx, cancel, engineRequest{id: req.TabID, client: req.Client}, p.cfg, log)
	e.onClose = p.unregister
	chromedp.ListenTarget(tabCtx, e.handleEvent)
	if err := chromedp.Run(tabCtx, e.setupActions()...); err != nil {
		cancel()
		return nil, fmt.Errorf("open target: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return nil, ErrProviderClosed
	}
	p.engines[e.TargetID()] = e
	p.mu.Unlock()

	e.start()
	req.Client.LifeSpan.OnAfterCreated()
	log.Info("engine target opened", "target", e.TargetID())
	if err := e.Navigate(req.URL); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (p *Provider) unregister(e *Engine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := e.TargetID()
	if p.engines[id] == e {
		delete(p.engines, id)
	}
	for guid, d := range p.downloads {
		if d.engine == e {
			delete(p.downloads, guid)
		}
	}
}

func (p *Provider) engine(id target.ID) *Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engines[id]
}

// handleBrowserEvent routes browser level events to the owning tab.
func (p *Provider) handleBrowserEvent(ev any) {
	switch ev := ev.(type) {
	case *target.EventTargetInfoChanged:
		if ev.TargetInfo == nil || ev.TargetInfo.Type != "page" {
			return
		}
		if e := p.engine(ev.TargetInfo.TargetID); e != nil {
			e.onTargetInfo(ev.TargetInfo)
		}
	case *target.EventTargetCreated:
		info := ev.TargetInfo
		if info == nil || info.Type != "page" || info.OpenerID == "" {
			return
		}
		if p.engine(info.OpenerID) != nil {
			go p.closeTarget(info.TargetID)
		}
	case *browser.EventDownloadWillBegin:
		p.beginDownload(ev)
	case *browser.EventDownloadProgress:
		p.progressDownload(ev)
	}
}

// closeTarget closes a popup target; its URL has already been handed to the host.
func (p *Provider) closeTarget(id target.ID) {
	ctx := p.context()
	if ctx == nil {
		return
	}
	if err := target.CloseTarget(id).Do(cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Browser)); err != nil {
		p.log.Debug("engine popup close failed", "target", id, "err", err)
		return
	}
	p.log.Debug("engine popup target closed", "target", id)
}

func (p *Provider) context() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	return p.browserCtx
}

// Close closes every tab and shuts the browser down.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	engines := make([]*Engine, 0, len(p.engines))
	for _, e := range p.engines {
		engines = append(engines, e)
	}
	browserCtx, browserCancel, allocCancel := p.browserCtx, p.browserCancel, p.allocCancel
	p.mu.Unlock()

	var errs []error
	for _, e := range engines {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if browserCtx != nil {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(browserCtx) }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
		browserCancel()
		allocCancel()
	}
	p.log.Info("engine browser stopped", "tabs", len(engines))
	return errors.Join(errs...)
}
