// Package scoring computes correctness, point splits, rankings and result
// summaries for quiz sessions. Every function is deterministic in its inputs;
// callers supply any timestamps.
package scoring

import (
	"math"
	"sort"

	"quiz-session-service/internal/domain"
)

// Award is the share of a question's points given to one correct player.
type Award struct {
	PlayerID int
	Points   float64
}

// IsCorrect reports whether answerIDs, taken as a set, equals the question's correct answers.
func IsCorrect(q domain.Question, answerIDs []int) bool {
	correct := q.CorrectAnswerIDs()
	if len(correct) != len(answerIDs) {
		return false
	}
	remaining := make(map[int]struct{}, len(correct))
	for _, id := range correct {
		remaining[id] = struct{}{}
	}
	for _, id := range answerIDs {
		if _, ok := remaining[id]; !ok {
			return false
		}
		delete(remaining, id)
	}
	return len(remaining) == 0
}

// SplitPoints gives the k-th correct player (1-based, in the order given) points/k.
func SplitPoints(points int, correctPlayerIDs []int) []Award {
	awards := make([]Award, 0, len(correctPlayerIDs))
	for i, id := range correctPlayerIDs {
		awards = append(awards, Award{PlayerID: id, Points: float64(points) / float64(i+1)})
	}
	return awards
}

// Round rounds half up, so 2.5 becomes 3.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// AverageAnswerTime is the rounded mean answer time over every submission, 0 without submissions.
func AverageAnswerTime(q domain.SessionQuestion) int {
	if len(q.Submissions) == 0 {
		return 0
	}
	var total float64
	for _, s := range q.Submissions {
		total += s.AnswerTime
	}
	return Round(total / float64(len(q.Submissions)))
}

// PercentCorrect is the rounded share of session players that answered correctly.
func PercentCorrect(correct, players int) int {
	if players == 0 {
		return 0
	}
	return Round(100 * float64(correct) / float64(players))
}

// QuestionResult summarizes one asked question. Correct player names are sorted alphabetically.
func QuestionResult(q domain.SessionQuestion, players []domain.Player) domain.QuestionResult {
	names := make([]string, 0, len(q.CorrectPlayerIDs))
	for _, id := range q.CorrectPlayerIDs {
		for _, p := range players {
			if p.PlayerID == id {
				names = append(names, p.Name)
				break
			}
		}
	}
	sort.Strings(names)

	return domain.QuestionResult{
		QuestionID:         q.QuestionID,
		PlayersCorrectList: names,
		AverageAnswerTime:  AverageAnswerTime(q),
		PercentCorrect:     PercentCorrect(len(names), len(players)),
	}
}

// FinalResults ranks every player by rounded score and summarizes every asked question.
// Players with equal rounded scores keep their join order.
func FinalResults(s domain.Session) domain.FinalResults {
	ranked := make([]domain.RankedUser, 0, len(s.Players))
	for _, p := range s.Players {
		ranked = append(ranked, domain.RankedUser{Name: p.Name, Score: Round(p.Score)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	results := make([]domain.QuestionResult, 0, len(s.SessionQuestions))
	for _, q := range s.SessionQuestions {
		results = append(results, QuestionResult(q, s.Players))
	}

	return domain.FinalResults{
		UsersRankedByScore: ranked,
		QuestionResults:    results,
	}
}

// PlayerResults builds the per-player, per-question score and rank table used
// by the CSV export, sorted by player name. A player without a submission for
// a question gets score 0 and rank 0.
func PlayerResults(s domain.Session) []domain.PlayerResults {
	ordered := make([][]domain.Submission, len(s.SessionQuestions))
	for i, q := range s.SessionQuestions {
		subs := append([]domain.Submission(nil), q.Submissions...)
		sort.SliceStable(subs, func(a, b int) bool {
			return subs[a].ScoreValue() > subs[b].ScoreValue()
		})
		ordered[i] = subs
	}

	rows := make([]domain.PlayerResults, 0, len(s.Players))
	for _, p := range s.Players {
		cells := make([]domain.ScoreAndRank, 0, len(ordered))
		for _, subs := range ordered {
			cells = append(cells, scoreAndRank(subs, p.PlayerID))
		}
		rows = append(rows, domain.PlayerResults{PlayerName: p.Name, Questions: cells})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PlayerName < rows[j].PlayerName
	})
	return rows
}

// scoreAndRank walks submissions sorted by score descending. The rank starts
// at 1 and grows by one each time the score strictly drops.
func scoreAndRank(ordered []domain.Submission, playerID int) domain.ScoreAndRank {
	if len(ordered) == 0 {
		return domain.ScoreAndRank{}
	}
	rank := 1
	prev := ordered[0].ScoreValue()
	for _, sub := range ordered {
		score := sub.ScoreValue()
		if score < prev {
			rank++
			prev = score
		}
		if sub.PlayerID == playerID {
			return domain.ScoreAndRank{Score: Round(score), Rank: rank}
		}
	}
	return domain.ScoreAndRank{}
}
