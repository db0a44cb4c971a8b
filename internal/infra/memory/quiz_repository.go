package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-session-service/internal/clock"
	"quiz-session-service/internal/domain"
)

// QuizLoader fetches quiz content from its backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int) (domain.Quiz, error)
}

// QuizRepository keeps loaded quizzes for a jittered TTL. Concurrent misses
// for the same quiz share one loader call.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  clock.Clock
	loads  singleflight.Group

	mu      sync.RWMutex
	rnd     *rand.Rand
	entries map[int]quizEntry
}

type quizEntry struct {
	quiz    domain.Quiz
	expires time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   clock.System{},
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[int]quizEntry),
	}
}

// WithClock swaps the time source used for expiry.
func (r *QuizRepository) WithClock(c clock.Clock) *QuizRepository {
	r.clock = c
	return r
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int) (domain.Quiz, error) {
	if quiz, ok := r.fresh(quizID); ok {
		return quiz, nil
	}

	v, err, _ := r.loads.Do(strconv.Itoa(quizID), func() (interface{}, error) {
		if quiz, ok := r.fresh(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz), nil
}

// Invalidate drops a cached quiz so the next read goes to the loader.
func (r *QuizRepository) Invalidate(quizID int) {
	r.mu.Lock()
	delete(r.entries, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) fresh(quizID int) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[quizID]
	if !ok || !e.expires.After(r.clock.Now()) {
		return domain.Quiz{}, false
	}
	return e.quiz, true
}

func (r *QuizRepository) store(quiz domain.Quiz) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ttl := r.ttl
	if ttl > 0 {
		// up to 10% jitter spreads expirations
		ttl += time.Duration(r.rnd.Int63n(int64(ttl)/10 + 1))
	}
	r.entries[quiz.QuizID] = quizEntry{quiz: quiz, expires: r.clock.Now().Add(ttl)}
}
