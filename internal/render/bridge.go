package render

import (
	"context"
	"sync"

	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// Rect is a view rectangle in logical pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ScreenInfo is what the engine asks for before painting.
type ScreenInfo struct {
	ScaleFactor       float64
	Rect              Rect
	AvailableRect     Rect
	Depth             int
	DepthPerComponent int
}

// Snapshot is a consistent read of the bridge. Frame is retained for the
// caller and must be released; it is nil before the first accepted frame.
type Snapshot struct {
	Width       int
	Height      int
	ScaleFactor float64
	Frame       *Frame
}

// Release drops the snapshot's frame reference.
func (s Snapshot) Release() {
	s.Frame.Release()
}

// Bridge hands the latest painted frame from the engine to the host.
// Readers never observe a partially written frame: pixels are copied or
// wrapped before the lock is taken and only the pointer swap happens under it.
type Bridge struct {
	mu     sync.Mutex
	width  int
	height int
	scale  float64
	frame  *Frame
	log    pslog.Logger
}

// NewBridge constructs a bridge with the default view size.
func NewBridge(logger pslog.Logger) *Bridge {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bridge{
		width:  schema.DefaultViewWidth,
		height: schema.DefaultViewHeight,
		scale:  schema.DefaultScaleFactor,
		log:    logger,
	}
}

// PublishCopy copies buf into a new frame and makes it current.
func (b *Bridge) PublishCopy(buf []byte, width, height int, format schema.PixelFormat) bool {
	if err := validate(buf, width, height, format); err != nil {
		b.log.Warn("render frame rejected", "err", err)
		return false
	}
	size := width * height * format.BytesPerPixel()
	pixels := make([]byte, size)
	copy(pixels, buf[:size])
	return b.PublishFrame(NewFrame(pixels, width, height, format))
}

// PublishSurface makes a surface-backed frame current without copying.
// On rejection the surface stays owned by the caller.
func (b *Bridge) PublishSurface(surface Surface, width, height int, format schema.PixelFormat) bool {
	if surface == nil {
		b.log.Warn("render frame rejected", "err", schema.ErrInvalidFrame, "reason", "nil surface")
		return false
	}
	frame := NewSurfaceFrame(surface, width, height, format)
	frame.onFree = b.surfaceFreed
	if err := frame.Validate(); err != nil {
		b.log.Warn("render frame rejected", "err", err)
		return false
	}
	return b.PublishFrame(frame)
}

// PublishFrame validates and swaps in a frame, taking ownership of the caller's reference.
// The previous frame loses the bridge's reference. A rejected frame is left to the caller.
func (b *Bridge) PublishFrame(frame *Frame) bool {
	if err := frame.Validate(); err != nil {
		b.log.Warn("render frame rejected", "err", err)
		return false
	}
	b.mu.Lock()
	frame.ScaleFactor = b.scale
	prev := b.frame
	b.frame = frame
	b.mu.Unlock()
	prev.Release()
	b.log.Trace("render frame published", "width", frame.Width, "height", frame.Height, "surface", frame.IsSurface())
	return true
}

// Latest returns the current view size, scale and a retained frame.
func (b *Bridge) Latest() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Width:       b.width,
		Height:      b.height,
		ScaleFactor: b.scale,
		Frame:       b.frame.Retain(),
	}
}

// SetSize records the host view size. Non-positive sizes are ignored.
func (b *Bridge) SetSize(width, height int) bool {
	if width <= 0 || height <= 0 {
		b.log.Debug("render size ignored", "width", width, "height", height)
		return false
	}
	b.mu.Lock()
	b.width = width
	b.height = height
	b.mu.Unlock()
	return true
}

// SetScaleFactor records the device scale. Non-positive values are ignored.
func (b *Bridge) SetScaleFactor(scale float64) bool {
	if scale <= 0 {
		return false
	}
	b.mu.Lock()
	b.scale = scale
	b.mu.Unlock()
	return true
}

// Size returns the view size.
func (b *Bridge) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// ScaleFactor returns the device scale.
func (b *Bridge) ScaleFactor() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scale
}

// ViewRect returns the view rectangle at the origin.
func (b *Bridge) ViewRect() Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Rect{Width: b.width, Height: b.height}
}

// ScreenInfo returns the screen description for the engine.
func (b *Bridge) ScreenInfo() ScreenInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	rect := Rect{Width: b.width, Height: b.height}
	return ScreenInfo{
		ScaleFactor:       b.scale,
		Rect:              rect,
		AvailableRect:     rect,
		Depth:             32,
		DepthPerComponent: 8,
	}
}

// Close drops the current frame.
func (b *Bridge) Close() {
	b.mu.Lock()
	prev := b.frame
	b.frame = nil
	b.mu.Unlock()
	prev.Release()
}

func (b *Bridge) surfaceFreed(err error) {
	if err != nil {
		b.log.Warn("render surface release failed", "err", err)
	}
}
