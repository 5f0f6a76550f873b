//go:build !linux

package render

// SharedSurface is unavailable on this platform.
type SharedSurface struct{}

// NewSharedSurface always fails on this platform.
func NewSharedSurface(size int) (*SharedSurface, error) {
	return nil, ErrSharedSurfaceUnsupported
}

// Bytes returns nil.
func (s *SharedSurface) Bytes() []byte { return nil }

// FD returns -1.
func (s *SharedSurface) FD() int { return -1 }

// Release does nothing.
func (s *SharedSurface) Release() error { return nil }
