package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

const (
	sessionSeqKey = "quiz:session:seq"
	playerSeqKey  = "quiz:player:seq"
	sessionSetKey = "quiz:sessions"
)

// SessionStore is a Redis-backed implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in a local map so locking, timers and broadcast
//     remain in-process.
//   - Session and player ids come from Redis INCR, so they stay unique
//     across restarts and instances.
//   - Every Save writes a JSON snapshot to quiz:session:{id} with a TTL.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[int]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int]*app.Session),
	}
}

func (s *SessionStore) Create(ctx context.Context, metadata domain.QuizMetadata, autoStartNum int, owner string) (*app.Session, error) {
	id, err := s.client.Incr(ctx, sessionSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("next session id: %w", err)
	}
	session := app.NewSession(int(id), metadata, autoStartNum, owner)
	if err := s.write(ctx, session.Snapshot()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[int(id)] = session
	s.mu.Unlock()
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

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (s *SessionStore) NextPlayerID(ctx context.Context) (int, error) {
	id, err := s.client.Incr(ctx, playerSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("next player id: %w", err)
	}
	return int(id), nil
}

func (s *SessionStore) Save(ctx context.Context, snapshot domain.Session) error {
	return s.write(ctx, snapshot)
}

// Load reads the last persisted snapshot of a session.
func (s *SessionStore) Load(ctx context.Context, sessionID int) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var snap domain.Session
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Session{}, fmt.Errorf("decode session %d: %w", sessionID, err)
	}
	return snap, nil
}

// Reset drops local sessions, every snapshot key and both id sequences.
func (s *SessionStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.sessions = make(map[int]*app.Session)
	s.mu.Unlock()

	ids, err := s.client.SMembers(ctx, sessionSetKey).Result()
	if err != nil {
		return err
	}
	keys := []string{sessionSeqKey, playerSeqKey, sessionSetKey}
	for _, raw := range ids {
		if id, err := strconv.Atoi(raw); err == nil {
			keys = append(keys, s.key(id))
		}
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *SessionStore) write(ctx context.Context, snapshot domain.Session) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", snapshot.SessionID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(snapshot.SessionID), payload, s.ttl)
	pipe.SAdd(ctx, sessionSetKey, snapshot.SessionID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) key(sessionID int) string {
	return "quiz:session:" + strconv.Itoa(sessionID)
}
