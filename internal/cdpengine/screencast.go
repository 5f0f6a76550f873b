package cdpengine

import (
	"encoding/base64"
	"errors"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/internal/render"
)

// offerFrame hands a screencast frame to the pump, replacing a frame that
// has not been painted yet. A replaced frame is acked so the browser keeps
// sending.
func (e *Engine) offerFrame(ev *page.EventScreencastFrame) {
	for {
		select {
		case e.frames <- ev:
			return
		default:
		}
		select {
		case stale := <-e.frames:
			go e.ackFrame(stale.SessionID)
		default:
		}
	}
}

func (e *Engine) ackFrame(sessionID int64) {
	if err := chromedp.Run(e.ctx, page.ScreencastFrameAck(sessionID)); err != nil && e.ctx.Err() == nil {
		e.log.Debug("engine screencast ack failed", "session", sessionID, "err", err)
	}
}

// pumpFrames decodes screencast frames into BGRA8 and publishes them through
// the render adapter.
func (e *Engine) pumpFrames() {
	var buf []byte
	for {
		select {
		case <-e.ctx.Done():
			return
		case ev := <-e.frames:
			e.ackFrame(ev.SessionID)
			data, err := base64.StdEncoding.DecodeString(ev.Data)
			if err != nil {
				e.log.Warn("engine screencast frame rejected", "err", err)
				continue
			}
			width, height, scale := e.viewSize()
			pw, ph := physical(width, scale), physical(height, scale)
			if e.useSurfaces() && e.paintSurface(data, pw, ph) {
				continue
			}
			buf, err = render.DecodeInto(buf, data, pw, ph)
			if err != nil {
				e.log.Warn("engine screencast frame rejected", "err", err)
				continue
			}
			e.client.Render.OnPaint(adapters.PaintView, buf, pw, ph)
		}
	}
}

func (e *Engine) useSurfaces() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surfaces
}

// paintSurface decodes into a fresh shared surface. It reports false when the
// caller should fall back to a copied paint.
func (e *Engine) paintSurface(data []byte, width, height int) bool {
	surface, err := render.NewSharedSurface(width * height * 4)
	if err != nil {
		if errors.Is(err, render.ErrSharedSurfaceUnsupported) {
			e.mu.Lock()
			e.surfaces = false
			e.mu.Unlock()
		}
		e.log.Warn("engine shared surface unavailable", "err", err)
		return false
	}
	if _, err := render.DecodeInto(surface.Bytes(), data, width, height); err != nil {
		_ = surface.Release()
		e.log.Warn("engine screencast frame rejected", "err", err)
		return true
	}
	if !e.client.Render.OnPaintSurface(adapters.PaintView, surface, width, height) {
		_ = surface.Release()
	}
	return true
}
