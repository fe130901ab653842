// Package session keeps per-browser analysis state for the web front end.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// State is what one browser session holds between requests.
type State struct {
	UpdatedAt    time.Time
	Result       *models.AnalysisResult
	Flash        string
	Error        string
	UploadedName string
}

// Store is a mutex-guarded map of session id to State.
type Store struct {
	sessions map[string]*State
	now      func() time.Time
	mu       sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*State),
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// Get returns a copy of the session's state. The result pointer is shared
// and must be treated as read-only.
func (s *Store) Get(id string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[id]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// SetResult records a completed analysis and replaces any previous one.
func (s *Store) SetResult(id, uploadedName string, result *models.AnalysisResult) {
	s.update(id, func(st *State) {
		st.Result = result
		st.UploadedName = uploadedName
		st.Flash = "Analysis complete!"
		st.Error = ""
	})
}

// SetError records a failed analysis. Any earlier result is kept.
func (s *Store) SetError(id, uploadedName, message string) {
	s.update(id, func(st *State) {
		st.UploadedName = uploadedName
		st.Error = message
		st.Flash = ""
	})
}

// TakeMessages returns and clears the one-shot flash and error messages.
func (s *Store) TakeMessages(id string) (flash, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		return "", ""
	}
	flash, errMsg = st.Flash, st.Error
	st.Flash, st.Error = "", ""
	return flash, errMsg
}

// Reset discards the session's state.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune drops sessions idle for longer than maxAge and returns how many were
// removed.
func (s *Store) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, st := range s.sessions {
		if st.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) update(id string, fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		st = &State{}
		s.sessions[id] = st
	}
	fn(st)
	st.UpdatedAt = s.now()
}
