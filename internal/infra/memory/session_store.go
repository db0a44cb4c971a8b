package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu           sync.RWMutex
	sessions     map[int]*app.Session
	saved        map[int]domain.Session
	lastSession  int
	lastPlayerID int
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int]*app.Session),
		saved:    make(map[int]domain.Session),
	}
}

func (s *SessionStore) Create(_ context.Context, metadata domain.QuizMetadata, autoStartNum int, owner string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSession++
	session := app.NewSession(s.lastSession, metadata, autoStartNum, owner)
	s.sessions[s.lastSession] = session
	s.saved[s.lastSession] = session.Snapshot()
	return session, nil
}

func (s *SessionStore) Get(sessionID int) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) GetByPlayerID(playerID int) (*app.Session, bool) {
	for _, session := range s.List() {
		if session.HasPlayer(playerID) {
			return session, true
		}
	}
	return nil, false
}

// List returns sessions ordered by id.
func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	ids := make([]int, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*app.Session, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.sessions[id])
	}
	s.mu.RUnlock()
	return out
}

func (s *SessionStore) NextPlayerID(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPlayerID++
	return s.lastPlayerID, nil
}

func (s *SessionStore) Save(_ context.Context, snapshot domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[snapshot.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.saved[snapshot.SessionID] = snapshot
	return nil
}

// Saved returns the last snapshot handed to Save.
func (s *SessionStore) Saved(sessionID int) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.saved[sessionID]
	return snap, ok
}

func (s *SessionStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[int]*app.Session)
	s.saved = make(map[int]domain.Session)
	s.lastSession = 0
	s.lastPlayerID = 0
	return nil
}
