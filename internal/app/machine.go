package app

import (
	"context"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/scoring"
)

// applyLocked runs one owner action against s. The caller holds s.mu for
// writing. On error nothing has been mutated.
func (svc *QuizService) applyLocked(s *Session, action domain.Action) error {
	switch s.data.State {
	case domain.StateLobby:
		switch action {
		case domain.ActionNextQuestion:
			svc.nextQuestionLocked(s)
			return nil
		case domain.ActionEnd:
			svc.endLocked(s)
			return nil
		}
	case domain.StateQuestionCountdown:
		switch action {
		case domain.ActionSkipCountdown:
			svc.openQuestionLocked(s)
			return nil
		case domain.ActionEnd:
			svc.endLocked(s)
			return nil
		}
	case domain.StateQuestionOpen:
		switch action {
		case domain.ActionGoToAnswer:
			svc.showAnswerLocked(s)
			return nil
		case domain.ActionEnd:
			svc.endLocked(s)
			return nil
		}
	case domain.StateQuestionClose:
		switch action {
		case domain.ActionNextQuestion:
			svc.nextQuestionLocked(s)
			return nil
		case domain.ActionGoToAnswer:
			svc.showAnswerLocked(s)
			return nil
		case domain.ActionGoToFinalResults:
			svc.finalResultsLocked(s)
			return nil
		case domain.ActionEnd:
			svc.endLocked(s)
			return nil
		}
	case domain.StateAnswerShow:
		switch action {
		case domain.ActionNextQuestion:
			svc.nextQuestionLocked(s)
			return nil
		case domain.ActionGoToFinalResults:
			svc.finalResultsLocked(s)
			return nil
		case domain.ActionEnd:
			svc.endLocked(s)
			return nil
		}
	case domain.StateFinalResults:
		if action == domain.ActionEnd {
			svc.endLocked(s)
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", domain.ErrInvalidAction, action, s.data.State)
}

// nextQuestionLocked counts down to the next question, or jumps to the final
// results when every question has been asked.
func (svc *QuizService) nextQuestionLocked(s *Session) {
	if s.data.AtQuestion >= len(s.data.Metadata.Questions) {
		svc.finalResultsLocked(s)
		return
	}
	s.data.AtQuestion++
	s.data.State = domain.StateQuestionCountdown
	svc.armLocked(s, svc.countdown, domain.StateQuestionCountdown, svc.openQuestionLocked)
}

func (svc *QuizService) openQuestionLocked(s *Session) {
	q := s.data.Metadata.Questions[s.data.AtQuestion-1]
	s.data.State = domain.StateQuestionOpen
	s.data.SessionQuestions = append(s.data.SessionQuestions, domain.SessionQuestion{
		QuestionID:       q.QuestionID,
		StartTime:        svc.scheduler.Now().Unix(),
		Submissions:      []domain.Submission{},
		CorrectPlayerIDs: []int{},
	})
	svc.armLocked(s, time.Duration(q.Duration)*time.Second, domain.StateQuestionOpen, svc.closeQuestionLocked)
}

func (svc *QuizService) closeQuestionLocked(s *Session) {
	s.data.State = domain.StateQuestionClose
	svc.scoreCurrentLocked(s)
}

func (svc *QuizService) showAnswerLocked(s *Session) {
	if s.data.State == domain.StateQuestionOpen {
		svc.scoreCurrentLocked(s)
	}
	s.data.State = domain.StateAnswerShow
	svc.cancelLocked(s)
}

func (svc *QuizService) finalResultsLocked(s *Session) {
	svc.cancelLocked(s)
	s.data.State = domain.StateFinalResults
	s.data.AtQuestion = 0
}

func (svc *QuizService) endLocked(s *Session) {
	svc.cancelLocked(s)
	s.data.State = domain.StateEnd
	s.data.AtQuestion = 0
}

// scoreCurrentLocked splits the current question's points among correct
// players. A question is scored at most once.
func (svc *QuizService) scoreCurrentLocked(s *Session) {
	idx := s.data.AtQuestion - 1
	if idx < 0 || idx >= len(s.data.SessionQuestions) {
		return
	}
	sq := &s.data.SessionQuestions[idx]
	if sq.Scored {
		return
	}

	for i := range sq.Submissions {
		zero := 0.0
		sq.Submissions[i].Score = &zero
	}
	for _, award := range scoring.SplitPoints(s.data.Metadata.Questions[idx].Points, sq.CorrectPlayerIDs) {
		for i := range sq.Submissions {
			if sq.Submissions[i].PlayerID == award.PlayerID {
				points := award.Points
				sq.Submissions[i].Score = &points
			}
		}
		if p, ok := s.data.Player(award.PlayerID); ok {
			p.Score += award.Points
		}
	}
	sq.Scored = true
}

// armLocked replaces the session's timer. The callback only runs if no other
// arm or cancel happened in between and the session is still in expect.
func (svc *QuizService) armLocked(s *Session, d time.Duration, expect domain.State, fire func(*Session)) {
	s.epoch++
	epoch := s.epoch
	svc.timers.Arm(s.data.SessionID, d, func() {
		svc.fireTimer(s, epoch, expect, fire)
	})
}

func (svc *QuizService) cancelLocked(s *Session) {
	s.epoch++
	svc.timers.Cancel(s.data.SessionID)
}

func (svc *QuizService) fireTimer(s *Session, epoch uint64, expect domain.State, fire func(*Session)) {
	ctx := context.Background()

	s.mu.Lock()
	id := s.data.SessionID
	if s.epoch != epoch || s.data.State != expect {
		s.mu.Unlock()
		svc.log.Debug("stale session timer skipped", "session_id", id, "expected", expect)
		return
	}
	svc.timers.Cancel(id)
	fire(s)
	to := s.data.State
	svc.persistLocked(ctx, s)
	s.broadcastLocked()
	s.mu.Unlock()

	svc.log.Info("session transition", "session_id", id, "trigger", "timer", "from", expect, "to", to)
}
