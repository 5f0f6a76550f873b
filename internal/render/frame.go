package render

import (
	"errors"
	"fmt"
	"sync/atomic"

	"pkt.systems/glass/schema"
)

// ErrSharedSurfaceUnsupported is returned where shared surfaces cannot be allocated.
var ErrSharedSurfaceUnsupported = errors.New("shared surfaces require linux")

// Surface is an externally owned pixel buffer handed over without copying.
type Surface interface {
	Bytes() []byte
	Release() error
}

// Frame is an immutable painted frame. Frames are reference counted so a
// surface-backed frame can be released once neither the bridge nor a reader holds it.
type Frame struct {
	Width       int
	Height      int
	Format      schema.PixelFormat
	ScaleFactor float64

	pixels  []byte
	surface Surface
	refs    atomic.Int32
	onFree  func(error)
}

// NewFrame wraps pixels without copying. The caller must not modify pixels afterwards.
func NewFrame(pixels []byte, width, height int, format schema.PixelFormat) *Frame {
	f := &Frame{Width: width, Height: height, Format: format, ScaleFactor: schema.DefaultScaleFactor, pixels: pixels}
	f.refs.Store(1)
	return f
}

// NewSurfaceFrame wraps a surface. The frame owns the surface from now on.
func NewSurfaceFrame(surface Surface, width, height int, format schema.PixelFormat) *Frame {
	f := &Frame{Width: width, Height: height, Format: format, ScaleFactor: schema.DefaultScaleFactor, surface: surface}
	f.refs.Store(1)
	return f
}

// Pixels returns the frame bytes, Stride()*Height long at least.
func (f *Frame) Pixels() []byte {
	if f == nil {
		return nil
	}
	if f.surface != nil {
		return f.surface.Bytes()
	}
	return f.pixels
}

// Stride returns the row length in bytes.
func (f *Frame) Stride() int {
	if f == nil {
		return 0
	}
	return f.Width * f.Format.BytesPerPixel()
}

// IsSurface reports whether the frame is backed by a shared surface.
func (f *Frame) IsSurface() bool {
	return f != nil && f.surface != nil
}

// Retain adds a reference and returns the frame.
func (f *Frame) Retain() *Frame {
	if f != nil {
		f.refs.Add(1)
	}
	return f
}

// Release drops a reference. The surface is released with the last reference.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	if f.refs.Add(-1) != 0 {
		return
	}
	if f.surface != nil {
		err := f.surface.Release()
		if f.onFree != nil {
			f.onFree(err)
		}
	}
}

// Validate checks dimensions, format and buffer length.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", schema.ErrInvalidFrame)
	}
	return validate(f.Pixels(), f.Width, f.Height, f.Format)
}

func validate(buf []byte, width, height int, format schema.PixelFormat) error {
	if buf == nil {
		return fmt.Errorf("%w: nil buffer", schema.ErrInvalidFrame)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: size %dx%d", schema.ErrInvalidFrame, width, height)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: unsupported format %s", schema.ErrInvalidFrame, format)
	}
	need := width * height * bpp
	if len(buf) < need {
		return fmt.Errorf("%w: buffer %d bytes, need %d", schema.ErrInvalidFrame, len(buf), need)
	}
	return nil
}
