package adapters

import (
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/internal/render"
	"pkt.systems/glass/schema"
)

// PaintElement identifies what the engine painted.
type PaintElement int

const (
	// PaintView is the main view.
	PaintView PaintElement = iota
	// PaintPopup is a popup widget such as a select dropdown.
	PaintPopup
)

// RenderAdapter publishes painted frames into the render bridge.
type RenderAdapter struct {
	out    *eventbridge.Producer
	bridge *render.Bridge
	format schema.PixelFormat
}

// NewRenderAdapter constructs a RenderAdapter for BGRA8 paints.
func NewRenderAdapter(out *eventbridge.Producer, bridge *render.Bridge) *RenderAdapter {
	return &RenderAdapter{out: out, bridge: bridge, format: schema.PixelFormatBGRA8}
}

// Bridge returns the render bridge.
func (a *RenderAdapter) Bridge() *render.Bridge {
	return a.bridge
}

// OnPaint copies a main view paint into the bridge and emits FrameReady.
func (a *RenderAdapter) OnPaint(element PaintElement, buffer []byte, width, height int) bool {
	if element != PaintView {
		return false
	}
	if !a.bridge.PublishCopy(buffer, width, height, a.format) {
		return false
	}
	a.out.Send(schema.FrameReady())
	return true
}

// OnPaintSurface hands a shared surface to the bridge without copying.
// On rejection the caller keeps ownership of surface.
func (a *RenderAdapter) OnPaintSurface(element PaintElement, surface render.Surface, width, height int) bool {
	if element != PaintView {
		return false
	}
	if !a.bridge.PublishSurface(surface, width, height, a.format) {
		return false
	}
	a.out.Send(schema.FrameReady())
	return true
}

// ViewRect returns the view rectangle for the engine.
func (a *RenderAdapter) ViewRect() render.Rect {
	return a.bridge.ViewRect()
}

// ScreenInfo returns the screen description for the engine.
func (a *RenderAdapter) ScreenInfo() render.ScreenInfo {
	return a.bridge.ScreenInfo()
}

// ScreenPoint maps view coordinates to screen coordinates. The view is the screen.
func (a *RenderAdapter) ScreenPoint(viewX, viewY int) (int, int) {
	return viewX, viewY
}
