// Package session provides the in-memory keyed store for coaching sessions.
// Each key has an exclusive lock: turns for the same session are linearized,
// turns for different sessions never block each other.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	state   domain.CoachState
	touched time.Time
	evicted bool
}

// Store maps opaque session ids to CoachState. Idle entries are evicted after
// the configured TTL; evicted or reset ids start over at a fresh zero-stage
// state on next access.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates a Store. A positive ttl starts a background janitor that
// drops sessions idle for longer than ttl; ttl <= 0 disables eviction.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor()
	}
	return s
}

// GetOrCreate returns a snapshot of the session's state, creating a fresh
// zero-stage state for unknown ids.
func (s *Store) GetOrCreate(id string) domain.CoachState {
	e := s.acquire(id)
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Update applies fn to a copy of the session's state under the key's lock and
// commits the copy only if fn succeeds. On error the stored state is
// untouched and the previous state is returned alongside the error. The lock
// is held for the full duration of fn, which is what linearizes concurrent
// turns for the same session.
func (s *Store) Update(id string, fn func(*domain.CoachState) error) (domain.CoachState, error) {
	e := s.acquire(id)
	defer e.mu.Unlock()

	next := e.state.Clone()
	if err := fn(&next); err != nil {
		return e.state.Clone(), err
	}
	e.state = next
	e.touched = time.Now()
	return next.Clone(), nil
}

// Reset removes the session. Subsequent access creates a fresh state.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.evicted = true
		e.mu.Unlock()
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the eviction janitor.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// acquire returns the entry for id with its lock held, creating it if needed.
// It retries when it loses a race against eviction.
func (s *Store) acquire(id string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			e = &entry{touched: time.Now()}
			s.entries[id] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}
		e.touched = time.Now()
		return e
	}
}

func (s *Store) janitor() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

func (s *Store) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		// TryLock skips entries with a turn in flight or waiting.
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.touched) > s.ttl {
			e.evicted = true
			delete(s.entries, id)
			log.Debug().Str("session", id).Msg("evicted idle session")
		}
		e.mu.Unlock()
	}
}
