package app

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"unicode/utf8"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/scoring"
)

const (
	maxMessageLength = 100
	letters          = "abcdefghijklmnopqrstuvwxyz"
)

// Join adds a player to a session in LOBBY and returns the new player id.
// An empty name is replaced by a generated one.
func (svc *QuizService) Join(ctx context.Context, sessionID int, name string) (int, error) {
	session, ok := svc.sessions.Get(sessionID)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}

	session.mu.Lock()
	if session.data.State != domain.StateLobby {
		session.mu.Unlock()
		return 0, domain.ErrNotInLobby
	}
	if name == "" {
		name = generateName(&session.data)
	} else if session.data.HasPlayerNamed(name) {
		session.mu.Unlock()
		return 0, fmt.Errorf("%w: %q", domain.ErrNameTaken, name)
	}

	playerID, err := svc.sessions.NextPlayerID(ctx)
	if err != nil {
		session.mu.Unlock()
		return 0, fmt.Errorf("allocate player id: %w", err)
	}
	session.data.Players = append(session.data.Players, domain.Player{PlayerID: playerID, Name: name})

	autoStarted := false
	if n := session.data.AutoStartNum; n > 0 && len(session.data.Players) == n {
		autoStarted = svc.applyLocked(session, domain.ActionNextQuestion) == nil
	}
	svc.persistLocked(ctx, session)
	session.broadcastLocked()
	session.mu.Unlock()

	svc.log.Info("player joined", "session_id", sessionID, "player_id", playerID, "name", name)
	if autoStarted {
		svc.log.Info("session transition", "session_id", sessionID, "trigger", "auto_start",
			"from", domain.StateLobby, "to", domain.StateQuestionCountdown)
	}
	return playerID, nil
}

// generateName picks five distinct letters followed by three distinct digits,
// retrying until the name is free in the session.
func generateName(s *domain.Session) string {
	for {
		buf := make([]byte, 0, 8)
		for _, i := range rand.Perm(len(letters))[:5] {
			buf = append(buf, letters[i])
		}
		for _, d := range rand.Perm(10)[:3] {
			buf = strconv.AppendInt(buf, int64(d), 10)
		}
		if name := string(buf); !s.HasPlayerNamed(name) {
			return name
		}
	}
}

// SubmitAnswer records the player's answer for the open question, replacing
// any earlier submission for it.
func (svc *QuizService) SubmitAnswer(ctx context.Context, playerID, position int, answerIDs []int) error {
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	d := &session.data
	q, ok := d.Question(position)
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrQuestionNotFound, position)
	}
	if d.State != domain.StateQuestionOpen {
		return fmt.Errorf("%w: answers need %s, session is %s", domain.ErrWrongState, domain.StateQuestionOpen, d.State)
	}
	if d.AtQuestion != position {
		return fmt.Errorf("%w: at %d, got %d", domain.ErrWrongPosition, d.AtQuestion, position)
	}
	if len(answerIDs) == 0 {
		return domain.ErrNoAnswers
	}
	seen := make(map[int]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		if !q.HasAnswer(id) {
			return fmt.Errorf("%w: %d", domain.ErrInvalidAnswerID, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %d", domain.ErrDuplicateAnswerID, id)
		}
		seen[id] = struct{}{}
	}

	sq := &d.SessionQuestions[position-1]
	sq.Submissions = removeSubmission(sq.Submissions, playerID)
	sq.CorrectPlayerIDs = removeID(sq.CorrectPlayerIDs, playerID)

	now := svc.scheduler.Now()
	elapsed := float64(now.UnixNano())/1e9 - float64(sq.StartTime)
	sq.Submissions = append(sq.Submissions, domain.Submission{
		PlayerID:   playerID,
		AnswerTime: elapsed,
		AnswerIDs:  append([]int(nil), answerIDs...),
	})
	if scoring.IsCorrect(q, answerIDs) {
		sq.CorrectPlayerIDs = append(sq.CorrectPlayerIDs, playerID)
	}

	svc.persistLocked(ctx, session)
	return nil
}

func removeSubmission(subs []domain.Submission, playerID int) []domain.Submission {
	out := subs[:0]
	for _, sub := range subs {
		if sub.PlayerID != playerID {
			out = append(out, sub)
		}
	}
	return out
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// CurrentQuestion shows the question at position while it is on screen,
// without revealing which answers are correct.
func (svc *QuizService) CurrentQuestion(_ context.Context, playerID, position int) (domain.QuestionView, error) {
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return domain.QuestionView{}, domain.ErrPlayerNotFound
	}
	session.mu.RLock()
	defer session.mu.RUnlock()

	d := &session.data
	q, ok := d.Question(position)
	if !ok {
		return domain.QuestionView{}, fmt.Errorf("%w: %d", domain.ErrQuestionNotFound, position)
	}
	if d.AtQuestion != position {
		return domain.QuestionView{}, fmt.Errorf("%w: at %d, got %d", domain.ErrWrongPosition, d.AtQuestion, position)
	}
	switch d.State {
	case domain.StateLobby, domain.StateEnd, domain.StateQuestionCountdown, domain.StateFinalResults:
		return domain.QuestionView{}, fmt.Errorf("%w: no question is shown in %s", domain.ErrWrongState, d.State)
	}
	return domain.NewQuestionView(q), nil
}

// QuestionResults summarises the question at position while its answer is shown.
func (svc *QuizService) QuestionResults(_ context.Context, playerID, position int) (domain.QuestionResult, error) {
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return domain.QuestionResult{}, domain.ErrPlayerNotFound
	}
	session.mu.RLock()
	defer session.mu.RUnlock()

	d := &session.data
	if _, ok := d.Question(position); !ok {
		return domain.QuestionResult{}, fmt.Errorf("%w: %d", domain.ErrQuestionNotFound, position)
	}
	if d.State != domain.StateAnswerShow {
		return domain.QuestionResult{}, fmt.Errorf("%w: results need %s, session is %s", domain.ErrWrongState, domain.StateAnswerShow, d.State)
	}
	if d.AtQuestion != position {
		return domain.QuestionResult{}, fmt.Errorf("%w: at %d, got %d", domain.ErrWrongPosition, d.AtQuestion, position)
	}
	return scoring.QuestionResult(d.SessionQuestions[position-1], d.Players), nil
}

// PlayerFinalResults returns the final aggregate of the player's session.
func (svc *QuizService) PlayerFinalResults(_ context.Context, playerID int) (domain.FinalResults, error) {
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return domain.FinalResults{}, domain.ErrPlayerNotFound
	}
	snap := session.Snapshot()
	if snap.State != domain.StateFinalResults {
		return domain.FinalResults{}, fmt.Errorf("%w: final results need %s, session is %s", domain.ErrWrongState, domain.StateFinalResults, snap.State)
	}
	return scoring.FinalResults(snap), nil
}

// Status is always available to a player.
func (svc *QuizService) Status(_ context.Context, playerID int) (domain.PlayerStatus, error) {
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return domain.PlayerStatus{}, domain.ErrPlayerNotFound
	}
	session.mu.RLock()
	defer session.mu.RUnlock()
	return domain.PlayerStatus{
		State:        session.data.State,
		NumQuestions: len(session.data.Metadata.Questions),
		AtQuestion:   session.data.AtQuestion,
	}, nil
}

// SendChat appends a message to the session's chat log.
func (svc *QuizService) SendChat(ctx context.Context, playerID int, body string) error {
	if n := utf8.RuneCountInString(body); n < 1 || n > maxMessageLength {
		return fmt.Errorf("%w: got %d", domain.ErrMessageLength, n)
	}
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	player, ok := session.data.Player(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	session.data.Messages = append(session.data.Messages, domain.Message{
		MessageBody: body,
		PlayerID:    playerID,
		PlayerName:  player.Name,
		TimeSent:    svc.scheduler.Now().Unix(),
	})
	svc.persistLocked(ctx, session)
	session.broadcastLocked()
	return nil
}

// ChatMessages returns a copy of the session's chat log.
func (svc *QuizService) ChatMessages(_ context.Context, playerID int) ([]domain.Message, error) {
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	session.mu.RLock()
	defer session.mu.RUnlock()
	return append([]domain.Message{}, session.data.Messages...), nil
}

// Subscribe returns a channel that receives session events for the player's session.
// The caller must invoke the returned cancel function to avoid leaks.
func (svc *QuizService) Subscribe(_ context.Context, playerID int) (<-chan domain.SessionEvent, func(), error) {
	session, ok := svc.sessions.GetByPlayerID(playerID)
	if !ok {
		return nil, nil, domain.ErrPlayerNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}
