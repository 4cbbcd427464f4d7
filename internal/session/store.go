package session

import (
	"sync"
	"time"
)

// Config bounds the in-memory store. Zero values mean the documented
// defaults (256 sessions, 40 history turns).
type Config struct {
	MaxSessions int
	MaxHistory  int
}

// Store owns every live session. All session reads and mutations go through
// View and Update so that concurrent turns against the same session cannot
// interleave partial state changes.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	maxSessions int
	maxHistory  int

	now func() time.Time
}

// NewStore creates an empty session store.
func NewStore(cfg Config) *Store {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 256
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 40
	}
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: cfg.MaxSessions,
		maxHistory:  cfg.MaxHistory,
		now:         time.Now,
	}
}

// Update runs fn against the session with the given ID, creating it first
// if needed, while holding the store lock. After fn returns, history is
// trimmed to the configured window and the session is marked as touched.
func (st *Store) Update(id string, fn func(*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.getOrCreateLocked(id)
	fn(s)
	if len(s.History) > st.maxHistory {
		s.History = append([]Turn(nil), s.History[len(s.History)-st.maxHistory:]...)
	}
	s.touchedAt = st.now()
}

// View runs fn against a read-only view of the session, creating it first
// if needed. fn must not retain the session pointer past its return.
func (st *Store) View(id string, fn func(*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.getOrCreateLocked(id)
	fn(s)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Drop removes a session if it exists.
func (st *Store) Drop(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) getOrCreateLocked(id string) *Session {
	if s, ok := st.sessions[id]; ok {
		s.touchedAt = st.now()
		return s
	}
	if len(st.sessions) >= st.maxSessions {
		st.evictOldestLocked()
	}
	now := st.now()
	s := &Session{ID: id, createdAt: now, touchedAt: now}
	st.sessions[id] = s
	return s
}

// evictOldestLocked drops the least recently touched session to keep the
// store within its configured session cap.
func (st *Store) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	first := true
	for id, s := range st.sessions {
		if first || s.touchedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = s.touchedAt
			first = false
		}
	}
	if oldestID != "" {
		delete(st.sessions, oldestID)
	}
}
