package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/gofrs/flock"

	"pkt.systems/pslog"
)

// Keys used by the host.
const (
	KeyTabs      = "browser_tabs"
	KeyHistory   = "browser_history"
	KeyBookmarks = "browser_bookmarks"
)

const lockName = ".lock"

// ErrLocked is returned when another process holds the state directory.
var ErrLocked = errors.New("state directory is locked by another process")

// Store persists JSON values by key under a state directory.
type Store struct {
	dir  string
	log  pslog.Logger
	lock *flock.Flock

	mu sync.Mutex
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{
		dir:  dir,
		log:  logger,
		lock: flock.New(filepath.Join(dir, lockName)),
	}, nil
}

// Dir returns the state directory.
func (s *Store) Dir() string {
	return s.dir
}

// Lock claims the state directory for this process. It does not wait.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock state directory: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	if s.log != nil {
		s.log.Debug("state lock acquired")
	}
	return nil
}

// Unlock releases the state directory.
func (s *Store) Unlock() error {
	if !s.lock.Locked() {
		return nil
	}
	return s.lock.Unlock()
}

// Get decodes the value stored under key into v. It reports false when the
// key has never been written.
func (s *Store) Get(key string, v any) (bool, error) {
	path := s.pathForKey(key)
	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("state load miss", "key", key)
			}
			return false, nil
		}
		if s.log != nil {
			s.log.Warn("state load failed", "key", key, "err", err)
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		if s.log != nil {
			s.log.Warn("state load failed", "key", key, "err", err)
		}
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	if s.log != nil {
		s.log.Debug("state load ok", "key", key, "bytes", len(data))
	}
	return true, nil
}

// Put atomically replaces the value stored under key.
func (s *Store) Put(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s.saveFailed(key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.pathForKey(key), data); err != nil {
		return s.saveFailed(key, err)
	}
	if s.log != nil {
		s.log.Trace("state save ok", "key", key, "bytes", len(data))
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.pathForKey(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) saveFailed(key string, err error) error {
	if s.log != nil {
		s.log.Warn("state save failed", "key", key, "err", err)
	}
	return err
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) pathForKey(key string) string {
	name := sanitize(key)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(s.dir, name+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
