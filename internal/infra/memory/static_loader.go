package memory

import (
	"context"
	"fmt"
	"sync"

	"quiz-session-service/internal/domain"
)

// StaticQuizLoader serves quizzes from a map. Used in demo mode and tests.
type StaticQuizLoader struct {
	mu      sync.RWMutex
	quizzes map[int]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[int]domain.Quiz) *StaticQuizLoader {
	if quizzes == nil {
		quizzes = make(map[int]domain.Quiz)
	}
	return &StaticQuizLoader{quizzes: quizzes}
}

// Put stores or replaces a quiz.
func (l *StaticQuizLoader) Put(quiz domain.Quiz) {
	l.mu.Lock()
	l.quizzes[quiz.QuizID] = quiz
	l.mu.Unlock()
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID int) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	quiz, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, fmt.Errorf("%w: %d", domain.ErrQuizNotFound, quizID)
	}
	return quiz, nil
}
