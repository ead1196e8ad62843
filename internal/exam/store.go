package exam

import (
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Store holds live sessions keyed by their opaque handle. It only guards the
// map; each Session guards its own state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}}
}

func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops completed sessions that finished before cutoff and returns
// how many were removed.
func (st *Store) Sweep(cutoff time.Time) int {
	st.mu.RLock()
	var stale []string
	for id, s := range st.sessions {
		if s.completedBefore(cutoff) {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, id := range stale {
		delete(st.sessions, id)
	}
	return len(stale)
}
