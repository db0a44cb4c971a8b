package app

import (
	"sync"

	"quiz-session-service/internal/domain"
)

// Session is the in-memory owner of one session record. Every read and
// mutation goes through mu; timer callbacks take the same lock.
type Session struct {
	mu          sync.RWMutex
	data        domain.Session
	epoch       uint64 // bumped on every timer arm or cancel
	subscribers map[chan domain.SessionEvent]struct{}
}

// NewSession is exported for infrastructure layers that allocate session ids.
func NewSession(id int, metadata domain.QuizMetadata, autoStartNum int, owner string) *Session {
	return &Session{
		data: domain.Session{
			SessionID:        id,
			State:            domain.StateLobby,
			AutoStartNum:     autoStartNum,
			Metadata:         metadata.Clone(),
			Players:          []domain.Player{},
			SessionQuestions: []domain.SessionQuestion{},
			Messages:         []domain.Message{},
			OwnerToken:       owner,
		},
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.SessionID
}

// QuizID returns the id of the quiz the session was started from.
func (s *Session) QuizID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Metadata.QuizID
}

// State returns the current state.
func (s *Session) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.State
}

// HasPlayer reports whether playerID joined this session.
func (s *Session) HasPlayer(playerID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data.Player(playerID)
	return ok
}

// Snapshot returns a deep copy of the record.
func (s *Session) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

func (s *Session) subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.eventLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcastLocked pushes the current event to every subscriber. A full
// buffer drops its oldest event so slow readers never block the session.
func (s *Session) broadcastLocked() {
	ev := s.eventLocked()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) closeSubscribersLocked() {
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) eventLocked() domain.SessionEvent {
	return domain.SessionEvent{
		SessionID:    s.data.SessionID,
		State:        s.data.State,
		AtQuestion:   s.data.AtQuestion,
		NumQuestions: len(s.data.Metadata.Questions),
		Players:      len(s.data.Players),
		Messages:     len(s.data.Messages),
	}
}
