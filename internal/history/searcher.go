package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/glass/internal/workpool"
	"pkt.systems/glass/schema"
)

// Pending is an in-flight search.
type Pending struct {
	Query   string
	results chan []schema.HistoryMatch
	cancel  atomic.Bool
}

// Results delivers exactly one slice, empty when the search was cancelled.
func (p *Pending) Results() <-chan []schema.HistoryMatch {
	return p.results
}

// Cancel asks the ranker to stop at its next batch boundary.
func (p *Pending) Cancel() {
	p.cancel.Store(true)
}

// Cancelled reports whether Cancel was called.
func (p *Pending) Cancelled() bool {
	return p.cancel.Load()
}

// Searcher runs history searches on a worker pool. Starting a search cancels
// the previous one.
type Searcher struct {
	pool *workpool.Pool
	now  func() time.Time

	mu      sync.Mutex
	current *Pending
}

// NewSearcher constructs a Searcher.
func NewSearcher(pool *workpool.Pool) *Searcher {
	return &Searcher{pool: pool, now: time.Now}
}

// Search ranks a snapshot of entries, usually Store.Entries(), in the background.
// The result channel is buffered so an abandoned search never blocks a worker.
func (s *Searcher) Search(ctx context.Context, entries []schema.HistoryEntry, query string, maxResults int) *Pending {
	pending := &Pending{Query: query, results: make(chan []schema.HistoryMatch, 1)}
	s.mu.Lock()
	if s.current != nil {
		s.current.Cancel()
	}
	s.current = pending
	s.mu.Unlock()

	if query == "" {
		pending.results <- nil
		return pending
	}
	now := s.now()
	task := func(taskCtx context.Context) error {
		var matches []schema.HistoryMatch
		if ctx.Err() == nil && taskCtx.Err() == nil && !pending.cancel.Load() {
			matches = Rank(entries, query, maxResults, now, &pending.cancel)
		}
		if pending.cancel.Load() {
			matches = nil
		}
		pending.results <- matches
		s.finish(pending)
		return nil
	}
	if err := s.pool.Submit("history.search", task); err != nil {
		pending.results <- nil
		s.finish(pending)
	}
	return pending
}

// Cancel cancels the in-flight search, if any.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
	s.mu.Unlock()
}

func (s *Searcher) finish(p *Pending) {
	s.mu.Lock()
	if s.current == p {
		s.current = nil
	}
	s.mu.Unlock()
}
