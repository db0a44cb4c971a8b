package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/clock"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/export"
	"quiz-session-service/internal/scoring"
)

const (
	DefaultCountdown    = 3 * time.Second
	DefaultMaxAutoStart = 50
	DefaultMaxActive    = 10
)

// SessionRepository abstracts where session records live (in-memory, Redis, etc).
// Implementations must not hold a session lock while scanning in GetByPlayerID.
type SessionRepository interface {
	Create(ctx context.Context, metadata domain.QuizMetadata, autoStartNum int, owner string) (*Session, error)
	Get(sessionID int) (*Session, bool)
	GetByPlayerID(playerID int) (*Session, bool)
	List() []*Session
	NextPlayerID(ctx context.Context) (int, error)
	Save(ctx context.Context, snapshot domain.Session) error
	Reset(ctx context.Context) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int) (domain.Quiz, error)
}

// ResultsArchive records final results once a session reaches FINAL_RESULTS.
type ResultsArchive interface {
	Archive(ctx context.Context, snapshot domain.Session, results domain.FinalResults) error
}

// ResultsStore keeps rendered CSV files retrievable by name.
type ResultsStore interface {
	Write(ctx context.Context, name string, data []byte) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type nopArchive struct{}

func (nopArchive) Archive(context.Context, domain.Session, domain.FinalResults) error { return nil }

// Option customises a QuizService.
type Option func(*QuizService)

func WithScheduler(s clock.Scheduler) Option {
	return func(svc *QuizService) { svc.scheduler = s }
}

func WithCountdown(d time.Duration) Option {
	return func(svc *QuizService) { svc.countdown = d }
}

// WithLimits sets the highest accepted autoStartNum and the number of
// non-ended sessions a quiz may have at once.
func WithLimits(maxAutoStart, maxActive int) Option {
	return func(svc *QuizService) {
		svc.maxAutoStart = maxAutoStart
		svc.maxActive = maxActive
	}
}

func WithResultsStore(store ResultsStore, baseURL string) Option {
	return func(svc *QuizService) {
		svc.results = store
		svc.baseURL = baseURL
	}
}

func WithArchive(a ResultsArchive) Option {
	return func(svc *QuizService) { svc.archive = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(svc *QuizService) { svc.log = l }
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository

	scheduler    clock.Scheduler
	timers       *Timers
	countdown    time.Duration
	maxAutoStart int
	maxActive    int
	results      ResultsStore
	baseURL      string
	archive      ResultsArchive
	log          *slog.Logger

	startMu sync.Mutex // serialises the active-session count check in StartSession
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, opts ...Option) *QuizService {
	svc := &QuizService{
		sessions:     store,
		quizzes:      quizzes,
		scheduler:    clock.System{},
		countdown:    DefaultCountdown,
		maxAutoStart: DefaultMaxAutoStart,
		maxActive:    DefaultMaxActive,
		results:      export.NewDirStore("public"),
		archive:      nopArchive{},
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.timers = NewTimers(svc.scheduler)
	return svc
}

// Timers exposes the timer table, mainly for tests and diagnostics.
func (svc *QuizService) Timers() *Timers {
	return svc.timers
}

// StartSession creates a LOBBY session for a quiz the caller owns.
func (svc *QuizService) StartSession(ctx context.Context, owner string, quizID, autoStartNum int) (int, error) {
	quiz, err := svc.ownedQuiz(ctx, owner, quizID)
	if err != nil {
		return 0, err
	}
	if autoStartNum < 0 || autoStartNum > svc.maxAutoStart {
		return 0, fmt.Errorf("%w: %d (max %d)", domain.ErrAutoStartTooLarge, autoStartNum, svc.maxAutoStart)
	}

	svc.startMu.Lock()
	defer svc.startMu.Unlock()

	active := 0
	for _, s := range svc.sessions.List() {
		if s.QuizID() == quizID && s.State() != domain.StateEnd {
			active++
		}
	}
	if active >= svc.maxActive {
		return 0, domain.ErrTooManySessions
	}
	if len(quiz.Questions) == 0 {
		return 0, domain.ErrNoQuestions
	}

	session, err := svc.sessions.Create(ctx, quiz.Metadata(), autoStartNum, owner)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	id := session.ID()
	svc.log.Info("session started", "session_id", id, "quiz_id", quizID, "auto_start", autoStartNum)
	return id, nil
}

// UpdateSessionState applies an owner action to a session.
func (svc *QuizService) UpdateSessionState(ctx context.Context, owner string, quizID, sessionID int, rawAction string) error {
	action, err := domain.ParseAction(rawAction)
	if err != nil {
		return err
	}
	session, err := svc.ownedSession(owner, quizID, sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	from := session.data.State
	if err := svc.applyLocked(session, action); err != nil {
		session.mu.Unlock()
		return err
	}
	to := session.data.State
	reachedFinal := to == domain.StateFinalResults && from != to
	var snapshot domain.Session
	if reachedFinal {
		snapshot = session.data.Clone()
	}
	svc.persistLocked(ctx, session)
	session.broadcastLocked()
	session.mu.Unlock()

	svc.log.Info("session transition", "session_id", sessionID, "action", action, "from", from, "to", to)
	if reachedFinal {
		svc.archiveResults(ctx, snapshot)
	}
	return nil
}

// SessionStatus is the owner's view of a session.
func (svc *QuizService) SessionStatus(_ context.Context, owner string, quizID, sessionID int) (domain.SessionStatus, error) {
	session, err := svc.ownedSession(owner, quizID, sessionID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	snap := session.Snapshot()

	names := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		names = append(names, p.Name)
	}
	sort.Strings(names)

	return domain.SessionStatus{
		State:      snap.State,
		AtQuestion: snap.AtQuestion,
		Players:    names,
		Metadata:   snap.Metadata,
	}, nil
}

// ViewSessions lists a quiz's session ids split by whether they have ended.
func (svc *QuizService) ViewSessions(ctx context.Context, owner string, quizID int) (domain.SessionList, error) {
	if _, err := svc.ownedQuiz(ctx, owner, quizID); err != nil {
		return domain.SessionList{}, err
	}
	list := domain.SessionList{ActiveSessions: []int{}, InactiveSessions: []int{}}
	for _, s := range svc.sessions.List() {
		if s.QuizID() != quizID {
			continue
		}
		if s.State() == domain.StateEnd {
			list.InactiveSessions = append(list.InactiveSessions, s.ID())
		} else {
			list.ActiveSessions = append(list.ActiveSessions, s.ID())
		}
	}
	sort.Ints(list.ActiveSessions)
	sort.Ints(list.InactiveSessions)
	return list, nil
}

// SessionFinalResults returns the final aggregate to the owner.
func (svc *QuizService) SessionFinalResults(_ context.Context, owner string, quizID, sessionID int) (domain.FinalResults, error) {
	session, err := svc.ownedSession(owner, quizID, sessionID)
	if err != nil {
		return domain.FinalResults{}, err
	}
	snap := session.Snapshot()
	if snap.State != domain.StateFinalResults {
		return domain.FinalResults{}, fmt.Errorf("%w: final results need %s, session is %s", domain.ErrWrongState, domain.StateFinalResults, snap.State)
	}
	return scoring.FinalResults(snap), nil
}

// SessionResultsCSV renders the per-player export and returns the URL it can be fetched from.
func (svc *QuizService) SessionResultsCSV(ctx context.Context, owner string, quizID, sessionID int) (string, error) {
	session, err := svc.ownedSession(owner, quizID, sessionID)
	if err != nil {
		return "", err
	}
	snap := session.Snapshot()
	if snap.State != domain.StateFinalResults {
		return "", fmt.Errorf("%w: csv export needs %s, session is %s", domain.ErrWrongState, domain.StateFinalResults, snap.State)
	}

	data, err := export.RenderCSV(len(snap.SessionQuestions), scoring.PlayerResults(snap))
	if err != nil {
		return "", fmt.Errorf("render csv: %w", err)
	}
	name := export.FileName(quizID, sessionID)
	if err := svc.results.Write(ctx, name, data); err != nil {
		return "", fmt.Errorf("store csv: %w", err)
	}
	return svc.baseURL + "/csv/" + name, nil
}

// OpenCSV returns a previously exported results file.
func (svc *QuizService) OpenCSV(ctx context.Context, name string) (io.ReadCloser, error) {
	return svc.results.Open(ctx, name)
}

// Reset cancels every timer and discards all sessions and id sequences.
func (svc *QuizService) Reset(ctx context.Context) error {
	for _, s := range svc.sessions.List() {
		s.mu.Lock()
		s.epoch++
		s.closeSubscribersLocked()
		s.mu.Unlock()
	}
	svc.timers.CancelAll()
	if err := svc.sessions.Reset(ctx); err != nil {
		return fmt.Errorf("reset sessions: %w", err)
	}
	svc.log.Info("all sessions cleared")
	return nil
}

func (svc *QuizService) ownedQuiz(ctx context.Context, owner string, quizID int) (domain.Quiz, error) {
	quiz, err := svc.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != owner {
		return domain.Quiz{}, domain.ErrNotOwner
	}
	return quiz, nil
}

func (svc *QuizService) ownedSession(owner string, quizID, sessionID int) (*Session, error) {
	session, ok := svc.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session.mu.RLock()
	defer session.mu.RUnlock()
	if session.data.Metadata.QuizID != quizID {
		return nil, domain.ErrSessionQuizMismatch
	}
	if session.data.OwnerToken != owner {
		return nil, domain.ErrNotOwner
	}
	return session, nil
}

// persistLocked hands a snapshot to the repository. Failures are logged, not
// returned: the in-memory record is authoritative.
func (svc *QuizService) persistLocked(ctx context.Context, s *Session) {
	if err := svc.sessions.Save(ctx, s.data.Clone()); err != nil {
		svc.log.Warn("persist session failed", "session_id", s.data.SessionID, "err", err)
	}
}

func (svc *QuizService) archiveResults(ctx context.Context, snapshot domain.Session) {
	if err := svc.archive.Archive(ctx, snapshot, scoring.FinalResults(snapshot)); err != nil {
		svc.log.Warn("archive final results failed", "session_id", snapshot.SessionID, "err", err)
	}
}
