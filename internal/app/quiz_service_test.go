package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/clock"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/export"
	"quiz-session-service/internal/infra/memory"
)

const (
	owner  = "owner-token"
	quizID = 1
)

var epoch = time.Unix(1_700_000_000, 0)

type fixture struct {
	svc     *app.QuizService
	clock   *clock.Fake
	store   *memory.SessionStore
	loader  *memory.StaticQuizLoader
	archive *recordingArchive
}

// loaderRepo reads straight through the loader so quiz edits are visible.
type loaderRepo struct {
	*memory.StaticQuizLoader
}

func (r loaderRepo) GetQuiz(ctx context.Context, id int) (domain.Quiz, error) {
	return r.LoadQuiz(ctx, id)
}

type recordingArchive struct {
	mu    sync.Mutex
	calls []domain.FinalResults
}

func (a *recordingArchive) Archive(_ context.Context, _ domain.Session, results domain.FinalResults) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, results)
	return nil
}

func (a *recordingArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clock.NewFake(epoch),
		store:   memory.NewSessionStore(),
		loader:  memory.NewStaticQuizLoader(map[int]domain.Quiz{quizID: sampleQuiz()}),
		archive: &recordingArchive{},
	}
	base := []app.Option{
		app.WithScheduler(f.clock),
		app.WithResultsStore(export.NewDirStore(t.TempDir()), "http://test"),
		app.WithArchive(f.archive),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	f.svc = app.NewQuizService(f.store, loaderRepo{f.loader}, append(base, opts...)...)
	return f
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		QuizID:      quizID,
		OwnerID:     owner,
		Name:        "Basics",
		Description: "two questions",
		Duration:    30,
		Questions: []domain.Question{
			{
				QuestionID: 10,
				Question:   "What is 2 + 2?",
				Duration:   10,
				Points:     5,
				Answers: []domain.Answer{
					{AnswerID: 1, Answer: "4", Correct: true, Colour: "red"},
					{AnswerID: 2, Answer: "5", Colour: "blue"},
				},
			},
			{
				QuestionID: 20,
				Question:   "Pick the primes",
				Duration:   20,
				Points:     5,
				Answers: []domain.Answer{
					{AnswerID: 1, Answer: "2", Correct: true, Colour: "red"},
					{AnswerID: 2, Answer: "3", Correct: true, Colour: "blue"},
					{AnswerID: 3, Answer: "4", Colour: "green"},
				},
			},
		},
	}
}

func (f *fixture) start(t *testing.T, autoStart int) int {
	t.Helper()
	id, err := f.svc.StartSession(context.Background(), owner, quizID, autoStart)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return id
}

func (f *fixture) act(t *testing.T, sessionID int, action domain.Action) {
	t.Helper()
	if err := f.svc.UpdateSessionState(context.Background(), owner, quizID, sessionID, string(action)); err != nil {
		t.Fatalf("%s: %v", action, err)
	}
}

func (f *fixture) join(t *testing.T, sessionID int, name string) int {
	t.Helper()
	id, err := f.svc.Join(context.Background(), sessionID, name)
	if err != nil {
		t.Fatalf("join %q: %v", name, err)
	}
	return id
}

func (f *fixture) snapshot(t *testing.T, sessionID int) domain.Session {
	t.Helper()
	s, ok := f.store.Get(sessionID)
	if !ok {
		t.Fatalf("session %d not found", sessionID)
	}
	return s.Snapshot()
}

func (f *fixture) submit(t *testing.T, playerID, position int, answers ...int) {
	t.Helper()
	if err := f.svc.SubmitAnswer(context.Background(), playerID, position, answers); err != nil {
		t.Fatalf("submit for player %d: %v", playerID, err)
	}
}

func TestStartSessionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.WithLimits(50, 2))

	if _, err := f.svc.StartSession(ctx, "someone-else", quizID, 0); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if _, err := f.svc.StartSession(ctx, owner, 99, 0); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if _, err := f.svc.StartSession(ctx, owner, quizID, 51); !errors.Is(err, domain.ErrAutoStartTooLarge) {
		t.Fatalf("expected auto start error, got %v", err)
	}

	empty := sampleQuiz()
	empty.QuizID = 2
	empty.Questions = nil
	f.loader.Put(empty)
	if _, err := f.svc.StartSession(ctx, owner, 2, 0); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions, got %v", err)
	}

	first := f.start(t, 0)
	f.start(t, 0)
	if _, err := f.svc.StartSession(ctx, owner, quizID, 0); !errors.Is(err, domain.ErrTooManySessions) {
		t.Fatalf("expected too many sessions, got %v", err)
	}

	f.act(t, first, domain.ActionEnd)
	if _, err := f.svc.StartSession(ctx, owner, quizID, 0); err != nil {
		t.Fatalf("ended sessions should not count as active: %v", err)
	}
}

func TestStartSessionSnapshotsMetadata(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, 0)

	edited := sampleQuiz()
	edited.Name = "Renamed"
	edited.Questions[0].Points = 100
	edited.Questions[0].Answers[0].Answer = "four"
	f.loader.Put(edited)

	snap := f.snapshot(t, id)
	if snap.State != domain.StateLobby || snap.AtQuestion != 0 {
		t.Fatalf("expected fresh LOBBY session, got %s/%d", snap.State, snap.AtQuestion)
	}
	if snap.Metadata.Name != "Basics" || snap.Metadata.Questions[0].Points != 5 || snap.Metadata.Questions[0].Answers[0].Answer != "4" {
		t.Fatalf("session metadata changed with the quiz: %+v", snap.Metadata)
	}

	status, err := f.svc.SessionStatus(context.Background(), owner, quizID, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	status.Metadata.Questions[0].Points = 42
	if again := f.snapshot(t, id); again.Metadata.Questions[0].Points != 5 {
		t.Fatalf("status metadata aliases the session record")
	}
}

func TestOwnerChecksOnSessionOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t, 0)

	if err := f.svc.UpdateSessionState(ctx, "intruder", quizID, id, "NEXT_QUESTION"); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := f.svc.UpdateSessionState(ctx, owner, 2, id, "NEXT_QUESTION"); !errors.Is(err, domain.ErrSessionQuizMismatch) {
		t.Fatalf("expected quiz mismatch, got %v", err)
	}
	if err := f.svc.UpdateSessionState(ctx, owner, quizID, 404, "NEXT_QUESTION"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err := f.svc.UpdateSessionState(ctx, owner, quizID, id, "JUMP"); !errors.Is(err, domain.ErrUnknownAction) {
		t.Fatalf("expected unknown action, got %v", err)
	}
	if got := f.snapshot(t, id).State; got != domain.StateLobby {
		t.Fatalf("rejected actions must not change state, got %s", got)
	}
}

func TestScenarioAutoStartAndSplitPoints(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, 2)

	a := f.join(t, id, "A")
	if got := f.snapshot(t, id).State; got != domain.StateLobby {
		t.Fatalf("expected LOBBY after first join, got %s", got)
	}
	b := f.join(t, id, "B")
	snap := f.snapshot(t, id)
	if snap.State != domain.StateQuestionCountdown || snap.AtQuestion != 1 {
		t.Fatalf("expected auto start to countdown at 1, got %s/%d", snap.State, snap.AtQuestion)
	}

	f.act(t, id, domain.ActionSkipCountdown)
	f.submit(t, a, 1, 1)
	f.submit(t, b, 1, 1)
	f.clock.Advance(10 * time.Second)

	snap = f.snapshot(t, id)
	if snap.State != domain.StateQuestionClose {
		t.Fatalf("expected question to close on its timer, got %s", snap.State)
	}
	pa, _ := snap.Player(a)
	pb, _ := snap.Player(b)
	if pa.Score != 5 || pb.Score != 2.5 {
		t.Fatalf("expected A=5 B=2.5, got A=%v B=%v", pa.Score, pb.Score)
	}
	subs := snap.SessionQuestions[0].Submissions
	if len(subs) != 2 || subs[0].ScoreValue() != 5 || subs[1].ScoreValue() != 2.5 {
		t.Fatalf("submission scores not filled in: %+v", subs)
	}

	f.act(t, id, domain.ActionGoToAnswer)
	result, err := f.svc.QuestionResults(context.Background(), a, 1)
	if err != nil {
		t.Fatalf("question results: %v", err)
	}
	if result.QuestionID != 10 || result.PercentCorrect != 100 || len(result.PlayersCorrectList) != 2 || result.PlayersCorrectList[0] != "A" {
		t.Fatalf("unexpected question result %+v", result)
	}
	if after := f.snapshot(t, id); after.Players[0].Score != 5 {
		t.Fatalf("GO_TO_ANSWER after close must not score again, got %v", after.Players[0].Score)
	}
}

func TestScenarioLastQuestionJumpsToFinalResults(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, 0)
	f.join(t, id, "A")

	f.act(t, id, domain.ActionNextQuestion)
	f.act(t, id, domain.ActionSkipCountdown)
	f.clock.Advance(10 * time.Second)
	f.act(t, id, domain.ActionNextQuestion)
	f.act(t, id, domain.ActionSkipCountdown)
	f.clock.Advance(20 * time.Second)

	snap := f.snapshot(t, id)
	if snap.State != domain.StateQuestionClose || snap.AtQuestion != 2 {
		t.Fatalf("expected CLOSE on question 2, got %s/%d", snap.State, snap.AtQuestion)
	}

	f.act(t, id, domain.ActionNextQuestion)
	snap = f.snapshot(t, id)
	if snap.State != domain.StateFinalResults || snap.AtQuestion != 0 {
		t.Fatalf("expected FINAL_RESULTS at 0, got %s/%d", snap.State, snap.AtQuestion)
	}
	if f.svc.Timers().Armed(id) {
		t.Fatalf("no timer should be armed in FINAL_RESULTS")
	}
	if f.archive.count() != 1 {
		t.Fatalf("expected results archived once, got %d", f.archive.count())
	}
}

func TestFinalResultsAndCSVExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t, 0)
	a := f.join(t, id, "A")
	b := f.join(t, id, "B")

	if _, err := f.svc.SessionResultsCSV(ctx, owner, quizID, id); !errors.Is(err, domain.ErrWrongState) {
		t.Fatalf("expected csv to need FINAL_RESULTS, got %v", err)
	}

	f.act(t, id, domain.ActionNextQuestion)
	f.act(t, id, domain.ActionSkipCountdown)
	f.submit(t, b, 1, 1)
	f.act(t, id, domain.ActionGoToAnswer)
	f.act(t, id, domain.ActionNextQuestion)
	f.act(t, id, domain.ActionSkipCountdown)
	f.submit(t, a, 2, 2, 1)
	f.submit(t, b, 2, 3)
	f.act(t, id, domain.ActionGoToAnswer)
	f.act(t, id, domain.ActionGoToFinalResults)

	results, err := f.svc.PlayerFinalResults(ctx, a)
	if err != nil {
		t.Fatalf("final results: %v", err)
	}
	if len(results.UsersRankedByScore) != 2 || results.UsersRankedByScore[0].Score != 5 || len(results.QuestionResults) != 2 {
		t.Fatalf("unexpected final results %+v", results)
	}
	if results.QuestionResults[1].PercentCorrect != 50 {
		t.Fatalf("expected 50%% on question 2, got %d", results.QuestionResults[1].PercentCorrect)
	}

	url, err := f.svc.SessionResultsCSV(ctx, owner, quizID, id)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if url != "http://test/csv/quiz_1_session_1.csv" {
		t.Fatalf("unexpected url %q", url)
	}
	rc, err := f.svc.OpenCSV(ctx, "quiz_1_session_1.csv")
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	want := "Player,question1score,question1rank,question2score,question2rank\n" +
		"A,0,0,5,1,\n" +
		"B,5,1,0,2,\n"
	if string(data) != want {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}

func TestViewSessionsAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.start(t, 0)
	second := f.start(t, 0)
	f.join(t, second, "zoe")
	f.join(t, second, "amy")
	f.act(t, first, domain.ActionEnd)

	list, err := f.svc.ViewSessions(ctx, owner, quizID)
	if err != nil {
		t.Fatalf("view sessions: %v", err)
	}
	if len(list.ActiveSessions) != 1 || list.ActiveSessions[0] != second || len(list.InactiveSessions) != 1 || list.InactiveSessions[0] != first {
		t.Fatalf("unexpected session list %+v", list)
	}
	if _, err := f.svc.ViewSessions(ctx, "intruder", quizID); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}

	status, err := f.svc.SessionStatus(ctx, owner, quizID, second)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != domain.StateLobby || len(status.Players) != 2 || status.Players[0] != "amy" || status.Metadata.NumQuestions != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestResetCancelsTimersAndClearsSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t, 0)
	player := f.join(t, id, "A")
	f.act(t, id, domain.ActionNextQuestion)
	if f.clock.Pending() != 1 {
		t.Fatalf("expected countdown armed, pending=%d", f.clock.Pending())
	}

	if err := f.svc.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if f.clock.Pending() != 0 || f.svc.Timers().Armed(id) {
		t.Fatalf("expected every timer cancelled")
	}
	if _, err := f.svc.Status(ctx, player); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected players gone after reset, got %v", err)
	}
	if next := f.start(t, 0); next != 1 {
		t.Fatalf("expected session ids to restart, got %d", next)
	}
}

func TestStateChangesArePersisted(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, 0)
	f.join(t, id, "A")
	f.act(t, id, domain.ActionNextQuestion)
	f.clock.Advance(3 * time.Second)

	saved, ok := f.store.Saved(id)
	if !ok {
		t.Fatalf("expected a saved snapshot")
	}
	if saved.State != domain.StateQuestionOpen || len(saved.Players) != 1 || len(saved.SessionQuestions) != 1 {
		t.Fatalf("timer transition was not persisted: %+v", saved)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t, 0)
	player := f.join(t, id, "A")

	ch, cancel, err := f.svc.Subscribe(ctx, player)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	initial := <-ch
	if initial.State != domain.StateLobby || initial.Players != 1 || initial.NumQuestions != 2 {
		t.Fatalf("unexpected initial event %+v", initial)
	}

	f.act(t, id, domain.ActionNextQuestion)
	update := <-ch
	if update.State != domain.StateQuestionCountdown || update.AtQuestion != 1 {
		t.Fatalf("expected countdown event, got %+v", update)
	}

	f.clock.Advance(3 * time.Second)
	update = <-ch
	if update.State != domain.StateQuestionOpen {
		t.Fatalf("expected timer-driven open event, got %+v", update)
	}

	if _, _, err := f.svc.Subscribe(ctx, 999); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected player not found, got %v", err)
	}
}
