package bot

import (
	"sync"
	"time"
)

// State tracks where a user is in a multi-step flow.
type State int

const (
	StateNone State = iota
	// StateAwaitingZone: /new was issued, waiting for a zone selection.
	StateAwaitingZone
	// StateAwaitingLabel: zone chosen, waiting for the subdomain name.
	StateAwaitingLabel
	// StateAwaitingDelete: /delete was issued, waiting for a claim selection.
	StateAwaitingDelete
)

// Session is the ephemeral per-user conversation state. It is never
// persisted; an abandoned flow is evicted after the idle window.
type Session struct {
	State     State
	ZoneID    string
	Domain    string
	UpdatedAt time.Time
}

// SessionStore holds sessions keyed by user identity. Each user's session
// is owned by that user's conversation; the store itself is shared and
// guarded by a mutex.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]Session)}
}

func (s *SessionStore) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *SessionStore) Put(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = time.Now()
	s.sessions[userID] = sess
}

func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// EvictIdle drops sessions untouched for longer than the window and
// reports how many were removed.
func (s *SessionStore) EvictIdle(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-window)
	evicted := 0
	for userID, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, userID)
			evicted++
		}
	}
	return evicted
}
