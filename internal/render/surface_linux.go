//go:build linux

package render

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// SharedSurface is an anonymous memory file mapped into this process.
// The descriptor can be handed to another process that maps the same pages.
type SharedSurface struct {
	mu   sync.Mutex
	fd   int
	data []byte
}

// NewSharedSurface allocates a memfd-backed surface of size bytes.
func NewSharedSurface(size int) (*SharedSurface, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shared surface size must be positive, got %d", size)
	}
	fd, err := unix.MemfdCreate("glass-surface", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("ftruncate surface: %w", err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap surface: %w", err)
	}
	return &SharedSurface{fd: fd, data: data}, nil
}

// Bytes returns the mapped pages, nil after Release.
func (s *SharedSurface) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// FD returns the memfd descriptor, -1 after Release.
func (s *SharedSurface) FD() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}

// Release unmaps and closes the surface. It is safe to call more than once.
func (s *SharedSurface) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	var firstErr error
	if err := unix.Munmap(s.data); err != nil {
		firstErr = fmt.Errorf("munmap surface: %w", err)
	}
	if err := unix.Close(s.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close surface: %w", err)
	}
	s.data = nil
	s.fd = -1
	return firstErr
}
