package cdpengine

import (
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/glass/schema"
)

// download is a browser download in flight. The browser writes into
// tmpPath (named by GUID); the file moves to path when it completes.
type download struct {
	engine  *Engine
	guid    string
	url     string
	name    string
	tmpPath string
	path    string
}

func (d *download) update(total, received int64, state schema.DownloadState) schema.DownloadUpdate {
	return schema.DownloadUpdate{
		ID:                d.guid,
		URL:               d.url,
		SuggestedFileName: d.name,
		FullPath:          d.path,
		TotalBytes:        total,
		ReceivedBytes:     received,
		PercentComplete:   percentComplete(received, total, state),
		State:             state,
	}
}

func percentComplete(received, total int64, state schema.DownloadState) int {
	switch {
	case state == schema.DownloadComplete:
		return 100
	case total <= 0:
		return 0
	case received >= total:
		return 100
	default:
		return int(received * 100 / total)
	}
}

func downloadState(state browser.DownloadProgressState) schema.DownloadState {
	switch state {
	case browser.DownloadProgressStateCompleted:
		return schema.DownloadComplete
	case browser.DownloadProgressStateCanceled:
		return schema.DownloadCanceled
	default:
		return schema.DownloadInProgress
	}
}

func (p *Provider) beginDownload(ev *browser.EventDownloadWillBegin) {
	e := p.engine(target.ID(ev.FrameID))
	if e == nil {
		e = p.soleEngine()
	}
	if e == nil {
		p.log.Warn("engine download without tab cancelled", "url", ev.URL)
		go p.cancelDownload(ev.GUID)
		return
	}
	path, err := e.client.Download.OnBeforeDownload(ev.SuggestedFilename, ev.URL)
	if err != nil {
		e.log.Warn("engine download refused", "url", ev.URL, "err", err)
		go p.cancelDownload(ev.GUID)
		return
	}
	d := &download{
		engine:  e,
		guid:    ev.GUID,
		url:     ev.URL,
		name:    ev.SuggestedFilename,
		tmpPath: filepath.Join(p.cfg.DownloadDir, ev.GUID),
		path:    path,
	}
	p.mu.Lock()
	p.downloads[ev.GUID] = d
	p.mu.Unlock()
	e.client.Download.OnDownloadUpdated(d.update(0, 0, schema.DownloadInProgress))
}

// soleEngine returns the only open tab. Downloads started from sub frames
// cannot be attributed otherwise.
func (p *Provider) soleEngine() *Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.engines) != 1 {
		return nil
	}
	for _, e := range p.engines {
		return e
	}
	return nil
}

func (p *Provider) progressDownload(ev *browser.EventDownloadProgress) {
	p.mu.Lock()
	d := p.downloads[ev.GUID]
	state := downloadState(ev.State)
	if d != nil && state != schema.DownloadInProgress {
		delete(p.downloads, ev.GUID)
	}
	p.mu.Unlock()
	if d == nil {
		return
	}

	update := d.update(int64(ev.TotalBytes), int64(ev.ReceivedBytes), state)
	switch state {
	case schema.DownloadComplete:
		src := ev.FilePath
		if src == "" {
			src = d.tmpPath
		}
		if err := os.Rename(src, d.path); err != nil {
			d.engine.log.Warn("engine download move failed", "from", src, "to", d.path, "err", err)
			update.State = schema.DownloadInterrupted
			update.FullPath = src
		} else {
			d.engine.log.Info("engine download complete", "path", d.path, "bytes", update.ReceivedBytes)
		}
	case schema.DownloadCanceled:
		if err := os.Remove(d.tmpPath); err != nil && !os.IsNotExist(err) {
			d.engine.log.Debug("engine download cleanup failed", "path", d.tmpPath, "err", err)
		}
	}
	d.engine.client.Download.OnDownloadUpdated(update)
}

func (p *Provider) cancelDownload(guid string) {
	ctx := p.context()
	if ctx == nil {
		return
	}
	if err := browser.CancelDownload(guid).Do(cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Browser)); err != nil {
		p.log.Debug("engine download cancel failed", "guid", guid, "err", err)
	}
}
