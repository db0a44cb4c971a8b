package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrPlayerNotFound is returned when a player id does not belong to any session.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question position outside the session's quiz.
	ErrQuestionNotFound = errors.New("question position is not valid for this session")
	// ErrResultsNotFound indicates an unknown CSV export name.
	ErrResultsNotFound = errors.New("results file not found")

	// ErrUnknownAction is returned for an action name outside the action set.
	ErrUnknownAction = errors.New("unknown session action")
	// ErrWrongPosition is returned when the session is on a different question.
	ErrWrongPosition = errors.New("session is not at this question position")
	// ErrNoAnswers rejects an empty answer submission.
	ErrNoAnswers = errors.New("at least one answer must be submitted")
	// ErrInvalidAnswerID rejects an answer id the question does not have.
	ErrInvalidAnswerID = errors.New("answer id is not valid for this question")
	// ErrDuplicateAnswerID rejects a submission listing the same answer twice.
	ErrDuplicateAnswerID = errors.New("duplicate answer ids submitted")
	// ErrNameTaken rejects a join with a name already used in the session.
	ErrNameTaken = errors.New("player name already taken in this session")
	// ErrMessageLength rejects chat bodies outside 1..100 characters.
	ErrMessageLength = errors.New("message body must be between 1 and 100 characters")
	// ErrAutoStartTooLarge rejects an auto start number above the configured limit.
	ErrAutoStartTooLarge = errors.New("auto start number is out of range")
	// ErrNoQuestions rejects starting a session for an empty quiz.
	ErrNoQuestions = errors.New("quiz does not have any questions")
	// ErrSessionQuizMismatch is returned when a session id belongs to another quiz.
	ErrSessionQuizMismatch = errors.New("session does not belong to this quiz")

	// ErrInvalidAction is returned when an action cannot be applied in the current state.
	ErrInvalidAction = errors.New("action cannot be applied in the current state")
	// ErrNotInLobby is returned when joining a session that already started.
	ErrNotInLobby = errors.New("session is not in LOBBY state")
	// ErrWrongState is returned when an operation needs a different session state.
	ErrWrongState = errors.New("session is not in the required state")
	// ErrTooManySessions is returned when a quiz already has the maximum of running sessions.
	ErrTooManySessions = errors.New("too many active sessions for this quiz")

	// ErrNotOwner is returned when the caller does not own the quiz or session.
	ErrNotOwner = errors.New("caller does not own this quiz")
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
)

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrResultsNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnknownAction), errors.Is(err, ErrWrongPosition),
		errors.Is(err, ErrNoAnswers), errors.Is(err, ErrInvalidAnswerID),
		errors.Is(err, ErrDuplicateAnswerID), errors.Is(err, ErrNameTaken),
		errors.Is(err, ErrMessageLength), errors.Is(err, ErrAutoStartTooLarge),
		errors.Is(err, ErrNoQuestions), errors.Is(err, ErrSessionQuizMismatch):
		return KindValidation
	case errors.Is(err, ErrInvalidAction), errors.Is(err, ErrNotInLobby),
		errors.Is(err, ErrWrongState), errors.Is(err, ErrTooManySessions):
		return KindConflict
	case errors.Is(err, ErrNotOwner):
		return KindForbidden
	}
	return KindInternal
}
