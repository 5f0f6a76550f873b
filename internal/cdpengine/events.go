package cdpengine

import (
	"context"
	"strings"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/internal/favicon"
)

// Load progress milestones reported while a page loads.
const (
	progressStarted   = 0.1
	progressCommitted = 0.3
	progressDOMReady  = 0.7
	progressLoaded    = 1.0
)

// handleEvent translates target events into adapter calls. It runs on the
// chromedp event goroutine and must not block; browser round trips go
// through the command queue.
func (e *Engine) handleEvent(ev any) {
	switch ev := ev.(type) {
	case *page.EventFrameNavigated:
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		e.setURL(ev.Frame.URL)
		e.client.Display.OnAddressChange(ev.Frame.URL)
		e.client.Display.OnLoadingProgressChange(progressCommitted)
		e.grantProtectedMedia(ev.Frame.SecurityOrigin)
	case *page.EventNavigatedWithinDocument:
		if !e.isMainFrame(string(ev.FrameID)) {
			return
		}
		e.setURL(ev.URL)
		e.client.Display.OnAddressChange(ev.URL)
		e.refreshLoadState(false)
	case *page.EventFrameStartedLoading:
		if !e.isMainFrame(string(ev.FrameID)) {
			return
		}
		e.client.Display.OnLoadingProgressChange(progressStarted)
		e.refreshLoadState(true)
	case *page.EventDomContentEventFired:
		e.client.Display.OnLoadingProgressChange(progressDOMReady)
	case *page.EventLoadEventFired:
		e.client.Display.OnLoadingProgressChange(progressLoaded)
		e.discoverFavicons()
	case *page.EventFrameStoppedLoading:
		if !e.isMainFrame(string(ev.FrameID)) {
			return
		}
		e.refreshLoadState(false)
	case *page.EventWindowOpen:
		e.client.LifeSpan.OnBeforePopup(ev.URL)
	case *page.EventScreencastFrame:
		e.offerFrame(ev)
	case *network.EventRequestWillBeSent:
		if ev.Type != network.ResourceTypeDocument || ev.Request == nil || !e.isMainFrame(string(ev.FrameID)) {
			return
		}
		e.documents[ev.RequestID] = ev.Request.URL
	case *network.EventLoadingFinished:
		delete(e.documents, ev.RequestID)
	case *network.EventLoadingFailed:
		e.documentFailed(ev)
	case *runtime.EventBindingCalled:
		e.handleBinding(ev.Name, ev.Payload)
	}
}

func (e *Engine) setURL(url string) {
	e.mu.Lock()
	e.url = url
	e.mu.Unlock()
}

func (e *Engine) currentURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

func (e *Engine) documentFailed(ev *network.EventLoadingFailed) {
	url, ok := e.documents[ev.RequestID]
	if !ok {
		return
	}
	delete(e.documents, ev.RequestID)
	code := NetErrorCode(ev.ErrorText)
	if ev.Canceled || code == ErrAborted {
		e.log.Debug("engine document load aborted", "url", url)
		return
	}
	e.client.Load.OnLoadError(url, code, ev.ErrorText)
}

// refreshLoadState reports the loading flag together with the history
// navigability read from the browser. When the queue is full the last known
// navigability is reported instead.
func (e *Engine) refreshLoadState(loading bool) {
	err := e.enqueue("load_state", func(ctx context.Context) error {
		var current int64
		var count int
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			idx, entries, err := page.GetNavigationHistory().Do(ctx)
			current, count = idx, len(entries)
			return err
		}))
		if err != nil {
			back, fwd := e.navigability()
			e.client.Load.OnLoadingStateChange(loading, back, fwd)
			return err
		}
		back, fwd := current > 0, int(current) < count-1
		e.setNavigability(back, fwd)
		e.client.Load.OnLoadingStateChange(loading, back, fwd)
		return nil
	})
	if err != nil {
		back, fwd := e.navigability()
		e.client.Load.OnLoadingStateChange(loading, back, fwd)
	}
}

func (e *Engine) navigability() (bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canBack, e.canFwd
}

func (e *Engine) setNavigability(back, fwd bool) {
	e.mu.Lock()
	e.canBack, e.canFwd = back, fwd
	e.mu.Unlock()
}

func (e *Engine) discoverFavicons() {
	pageURL := e.currentURL()
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return
	}
	err := e.enqueue("favicon", func(ctx context.Context) error {
		var html string
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			root, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
			return err
		}))
		if err != nil {
			return err
		}
		urls, err := favicon.Discover(strings.NewReader(html), pageURL)
		if err != nil {
			return err
		}
		if len(urls) > 0 {
			e.client.Display.OnFaviconURLChange(urls)
		}
		return nil
	})
	if err != nil {
		e.log.Debug("engine favicon discovery skipped", "err", err)
	}
}

// grantProtectedMedia asks the permission adapter once per origin and grants
// the protected media identifier when it accepts.
func (e *Engine) grantProtectedMedia(origin string) {
	if origin == "" || origin == "null" || origin == "://" {
		return
	}
	e.mu.Lock()
	if _, seen := e.granted[origin]; seen {
		e.mu.Unlock()
		return
	}
	e.promptSeq++
	promptID := e.promptSeq
	e.granted[origin] = false
	e.mu.Unlock()

	if e.client.Permission.OnShowPermissionPrompt(promptID, origin, adapters.ProtectedMediaIdentifier) != adapters.PermissionAccept {
		return
	}
	err := e.enqueue("grant_permission", func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		if c == nil || c.Browser == nil {
			return chromedp.ErrInvalidContext
		}
		err := browser.GrantPermissions([]browser.PermissionType{browser.PermissionTypeProtectedMediaIdentifier}).
			WithOrigin(origin).
			Do(cdp.WithExecutor(ctx, c.Browser))
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.granted[origin] = true
		e.mu.Unlock()
		return nil
	})
	if err != nil {
		e.log.Warn("engine permission grant not queued", "origin", origin, "err", err)
	}
}

func (e *Engine) handleBinding(name, payload string) {
	switch name {
	case bindingContextMenu:
		params, err := parseContextMenu(payload)
		if err != nil {
			e.log.Warn("engine context menu payload rejected", "err", err)
			return
		}
		e.client.ContextMenu.RunContextMenu(params, nil)
	case bindingOpenURL:
		url, disposition, err := parseOpenURL(payload)
		if err != nil {
			e.log.Warn("engine open url payload rejected", "err", err)
			return
		}
		if !e.client.Request.OnOpenURLFromTab(url, disposition, true) {
			if err := e.Navigate(url); err != nil {
				e.log.Warn("engine open url failed", "url", url, "err", err)
			}
		}
	default:
		e.log.Debug("engine unknown binding", "name", name)
	}
}

// onTargetInfo receives browser level target updates for this tab.
func (e *Engine) onTargetInfo(info *target.Info) {
	if info == nil {
		return
	}
	title := info.Title
	if title == info.URL || "https://"+title == info.URL || "http://"+title == info.URL {
		title = ""
	}
	e.mu.Lock()
	changed := title != e.title
	e.title = title
	e.mu.Unlock()
	if changed {
		e.client.Display.OnTitleChange(title)
	}
}
