package domain

import "fmt"

// State is a quiz session state.
type State string

const (
	StateLobby             State = "LOBBY"
	StateQuestionCountdown State = "QUESTION_COUNTDOWN"
	StateQuestionOpen      State = "QUESTION_OPEN"
	StateQuestionClose     State = "QUESTION_CLOSE"
	StateAnswerShow        State = "ANSWER_SHOW"
	StateFinalResults      State = "FINAL_RESULTS"
	StateEnd               State = "END"
)

// Action is an owner command applied to a session.
type Action string

const (
	ActionNextQuestion     Action = "NEXT_QUESTION"
	ActionSkipCountdown    Action = "SKIP_COUNTDOWN"
	ActionGoToAnswer       Action = "GO_TO_ANSWER"
	ActionGoToFinalResults Action = "GO_TO_FINAL_RESULTS"
	ActionEnd              Action = "END"
)

// ParseAction validates an action name received from a client.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionNextQuestion, ActionSkipCountdown, ActionGoToAnswer, ActionGoToFinalResults, ActionEnd:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// Player is a participant inside exactly one session.
type Player struct {
	PlayerID int     `json:"playerId"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// Submission is one player's answer to one asked question.
// Score stays nil until the question is scored.
type Submission struct {
	PlayerID   int      `json:"playerId"`
	AnswerTime float64  `json:"answerTime"` // seconds since the question opened
	AnswerIDs  []int    `json:"answerIds"`
	Score      *float64 `json:"score"`
}

// ScoreValue returns the awarded score, treating an unscored submission as 0.
func (s Submission) ScoreValue() float64 {
	if s.Score == nil {
		return 0
	}
	return *s.Score
}

// SessionQuestion is the runtime record of a question that has been opened.
type SessionQuestion struct {
	QuestionID       int          `json:"questionId"`
	StartTime        int64        `json:"startTime"` // epoch seconds
	Submissions      []Submission `json:"submissions"`
	CorrectPlayerIDs []int        `json:"correctPlayersId"`
	Scored           bool         `json:"scored"`
}

// Message is a chat line.
type Message struct {
	MessageBody string `json:"messageBody"`
	PlayerID    int    `json:"playerId"`
	PlayerName  string `json:"playerName"`
	TimeSent    int64  `json:"timeSent"`
}

// Session is the persisted record of one live playthrough of a quiz.
type Session struct {
	SessionID        int               `json:"sessionId"`
	State            State             `json:"state"`
	AtQuestion       int               `json:"atQuestion"`
	AutoStartNum     int               `json:"autoStartNum"`
	Metadata         QuizMetadata      `json:"metadata"`
	Players          []Player          `json:"players"`
	SessionQuestions []SessionQuestion `json:"sessionQuestion"`
	Messages         []Message         `json:"messages"`
	OwnerToken       string            `json:"sessionOwnerToken"`
}

// Player finds a player by id.
func (s *Session) Player(playerID int) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].PlayerID == playerID {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// HasPlayerNamed reports whether name is taken within the session.
func (s *Session) HasPlayerNamed(name string) bool {
	for _, p := range s.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Question returns the metadata question at a 1-based position.
func (s *Session) Question(position int) (Question, bool) {
	if position < 1 || position > len(s.Metadata.Questions) {
		return Question{}, false
	}
	return s.Metadata.Questions[position-1], true
}

// Clone returns a deep copy safe to hand outside the session lock.
func (s Session) Clone() Session {
	s.Metadata = s.Metadata.Clone()
	s.Players = append([]Player(nil), s.Players...)
	s.Messages = append([]Message(nil), s.Messages...)
	questions := make([]SessionQuestion, len(s.SessionQuestions))
	for i, q := range s.SessionQuestions {
		subs := make([]Submission, len(q.Submissions))
		for j, sub := range q.Submissions {
			sub.AnswerIDs = append([]int(nil), sub.AnswerIDs...)
			if sub.Score != nil {
				v := *sub.Score
				sub.Score = &v
			}
			subs[j] = sub
		}
		q.Submissions = subs
		q.CorrectPlayerIDs = append([]int(nil), q.CorrectPlayerIDs...)
		questions[i] = q
	}
	s.SessionQuestions = questions
	return s
}
