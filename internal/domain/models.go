package domain

// Answer represents a possible answer for a question.
type Answer struct {
	AnswerID int    `json:"answerId"`
	Answer   string `json:"answer"`
	Correct  bool   `json:"correct"`
	Colour   string `json:"colour"`
}

// Question models a timed question that may have several correct answers.
type Question struct {
	QuestionID   int      `json:"questionId"`
	Question     string   `json:"question"`
	Duration     int      `json:"duration"` // seconds
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Points       int      `json:"points"`
	Answers      []Answer `json:"answers"`
}

// CorrectAnswerIDs returns the ids of every answer flagged correct, in metadata order.
func (q Question) CorrectAnswerIDs() []int {
	ids := make([]int, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.Correct {
			ids = append(ids, a.AnswerID)
		}
	}
	return ids
}

// HasAnswer reports whether answerID belongs to the question.
func (q Question) HasAnswer(answerID int) bool {
	for _, a := range q.Answers {
		if a.AnswerID == answerID {
			return true
		}
	}
	return false
}

// Quiz is the authored quiz as served by the quiz store. Only OwnerID and the
// content fields matter to sessions.
type Quiz struct {
	QuizID       int        `json:"quizId"`
	OwnerID      string     `json:"ownerId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Questions    []Question `json:"questions"`
	Duration     int        `json:"duration"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
}

// QuizMetadata is the frozen copy of a quiz that a session plays.
type QuizMetadata struct {
	QuizID       int        `json:"quizId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	NumQuestions int        `json:"numQuestions"`
	Questions    []Question `json:"questions"`
	Duration     int        `json:"duration"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
}

// Metadata deep-copies the quiz content so later edits never reach a running session.
func (q Quiz) Metadata() QuizMetadata {
	return QuizMetadata{
		QuizID:       q.QuizID,
		Name:         q.Name,
		Description:  q.Description,
		NumQuestions: len(q.Questions),
		Questions:    copyQuestions(q.Questions),
		Duration:     q.Duration,
		ThumbnailURL: q.ThumbnailURL,
	}
}

// Clone returns an independent copy of the metadata.
func (m QuizMetadata) Clone() QuizMetadata {
	m.Questions = copyQuestions(m.Questions)
	return m
}

func copyQuestions(src []Question) []Question {
	out := make([]Question, len(src))
	for i, q := range src {
		q.Answers = append([]Answer(nil), q.Answers...)
		out[i] = q
	}
	return out
}

// QuestionView is what a player sees of the current question. Correctness is never included.
type QuestionView struct {
	QuestionID   int          `json:"questionId"`
	Question     string       `json:"question"`
	Duration     int          `json:"duration"`
	ThumbnailURL string       `json:"thumbnailUrl"`
	Points       int          `json:"points"`
	Answers      []AnswerView `json:"answers"`
}

// AnswerView is an answer without its correctness flag.
type AnswerView struct {
	AnswerID int    `json:"answerId"`
	Answer   string `json:"answer"`
	Colour   string `json:"colour"`
}

// NewQuestionView strips correctness from a metadata question.
func NewQuestionView(q Question) QuestionView {
	answers := make([]AnswerView, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, AnswerView{AnswerID: a.AnswerID, Answer: a.Answer, Colour: a.Colour})
	}
	return QuestionView{
		QuestionID:   q.QuestionID,
		Question:     q.Question,
		Duration:     q.Duration,
		ThumbnailURL: q.ThumbnailURL,
		Points:       q.Points,
		Answers:      answers,
	}
}

// QuestionResult summarizes one asked question.
type QuestionResult struct {
	QuestionID         int      `json:"questionId"`
	PlayersCorrectList []string `json:"playersCorrectList"`
	AverageAnswerTime  int      `json:"averageAnswerTime"`
	PercentCorrect     int      `json:"percentCorrect"`
}

// RankedUser is a player in the final standings.
type RankedUser struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// FinalResults is the aggregate shown once a session reaches FINAL_RESULTS.
type FinalResults struct {
	UsersRankedByScore []RankedUser     `json:"usersRankedByScore"`
	QuestionResults    []QuestionResult `json:"questionResults"`
}

// ScoreAndRank is one cell pair of the CSV export.
type ScoreAndRank struct {
	Score int `json:"score"`
	Rank  int `json:"rank"`
}

// PlayerResults is one CSV row before rendering.
type PlayerResults struct {
	PlayerName string         `json:"playerName"`
	Questions  []ScoreAndRank `json:"questionScoreAndRank"`
}

// PlayerStatus is the read-only status a player can always query.
type PlayerStatus struct {
	State        State `json:"state"`
	NumQuestions int   `json:"numQuestions"`
	AtQuestion   int   `json:"atQuestion"`
}

// SessionStatus is the owner's view of a session.
type SessionStatus struct {
	State      State        `json:"state"`
	AtQuestion int          `json:"atQuestion"`
	Players    []string     `json:"players"`
	Metadata   QuizMetadata `json:"metadata"`
}

// SessionList splits a quiz's sessions into those still running and those ended.
type SessionList struct {
	ActiveSessions   []int `json:"activeSessions"`
	InactiveSessions []int `json:"inactiveSessions"`
}

// SessionEvent is pushed to subscribers whenever a session changes.
type SessionEvent struct {
	SessionID    int   `json:"sessionId"`
	State        State `json:"state"`
	AtQuestion   int   `json:"atQuestion"`
	NumQuestions int   `json:"numQuestions"`
	Players      int   `json:"players"`
	Messages     int   `json:"messages"`
}
