package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quiz-session-service/internal/domain"
)

func score(v float64) *float64 { return &v }

func multiAnswerQuestion() domain.Question {
	return domain.Question{
		QuestionID: 7,
		Points:     9,
		Answers: []domain.Answer{
			{AnswerID: 1, Answer: "Paris", Correct: true},
			{AnswerID: 2, Answer: "Lyon"},
			{AnswerID: 3, Answer: "Marseille", Correct: true},
		},
	}
}

func TestIsCorrectUsesSetEquality(t *testing.T) {
	q := multiAnswerQuestion()

	cases := []struct {
		name    string
		answers []int
		want    bool
	}{
		{"exact order", []int{1, 3}, true},
		{"reversed order", []int{3, 1}, true},
		{"subset", []int{1}, false},
		{"superset", []int{1, 2, 3}, false},
		{"wrong answer", []int{2, 3}, false},
		{"duplicate in place of second", []int{1, 1}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsCorrect(q, tc.answers))
		})
	}
}

func TestSplitPointsByCorrectOrder(t *testing.T) {
	awards := SplitPoints(9, []int{10, 20, 30})

	require.Len(t, awards, 3)
	assert.Equal(t, Award{PlayerID: 10, Points: 9}, awards[0])
	assert.Equal(t, Award{PlayerID: 20, Points: 4.5}, awards[1])
	assert.Equal(t, Award{PlayerID: 30, Points: 3}, awards[2])
	assert.Empty(t, SplitPoints(5, nil))
}

func TestQuestionResultSummary(t *testing.T) {
	players := []domain.Player{
		{PlayerID: 1, Name: "zed"},
		{PlayerID: 2, Name: "amy"},
	}
	q := domain.SessionQuestion{
		QuestionID: 4,
		Submissions: []domain.Submission{
			{PlayerID: 1, AnswerTime: 2, AnswerIDs: []int{1}},
			{PlayerID: 2, AnswerTime: 5, AnswerIDs: []int{2}},
		},
		CorrectPlayerIDs: []int{1},
	}

	res := QuestionResult(q, players)
	assert.Equal(t, 4, res.QuestionID)
	assert.Equal(t, []string{"zed"}, res.PlayersCorrectList)
	assert.Equal(t, 4, res.AverageAnswerTime) // 3.5 rounds up
	assert.Equal(t, 50, res.PercentCorrect)

	q.CorrectPlayerIDs = []int{1, 2}
	res = QuestionResult(q, players)
	assert.Equal(t, []string{"amy", "zed"}, res.PlayersCorrectList)
	assert.Equal(t, 100, res.PercentCorrect)
}

func TestQuestionResultWithoutSubmissions(t *testing.T) {
	res := QuestionResult(domain.SessionQuestion{QuestionID: 1}, []domain.Player{{PlayerID: 1, Name: "a"}})
	assert.Equal(t, 0, res.AverageAnswerTime)
	assert.Equal(t, 0, res.PercentCorrect)
	assert.Empty(t, res.PlayersCorrectList)

	assert.Equal(t, 0, PercentCorrect(0, 0))
}

func TestFinalResultsRanksByRoundedScore(t *testing.T) {
	s := domain.Session{
		Players: []domain.Player{
			{PlayerID: 1, Name: "first", Score: 2.5},
			{PlayerID: 2, Name: "second", Score: 5},
			{PlayerID: 3, Name: "third", Score: 2.6},
		},
		SessionQuestions: []domain.SessionQuestion{{QuestionID: 1}, {QuestionID: 2}},
	}

	res := FinalResults(s)
	require.Len(t, res.UsersRankedByScore, 3)
	assert.Equal(t, domain.RankedUser{Name: "second", Score: 5}, res.UsersRankedByScore[0])
	// first and third both round to 3 and keep join order
	assert.Equal(t, domain.RankedUser{Name: "first", Score: 3}, res.UsersRankedByScore[1])
	assert.Equal(t, domain.RankedUser{Name: "third", Score: 3}, res.UsersRankedByScore[2])
	require.Len(t, res.QuestionResults, 2)
	assert.Equal(t, 2, res.QuestionResults[1].QuestionID)
}

func TestPlayerResultsScoresAndRanks(t *testing.T) {
	s := domain.Session{
		Players: []domain.Player{
			{PlayerID: 2, Name: "B", Score: 5},
			{PlayerID: 1, Name: "A", Score: 5},
		},
		SessionQuestions: []domain.SessionQuestion{
			{
				QuestionID: 1,
				Submissions: []domain.Submission{
					{PlayerID: 2, AnswerIDs: []int{1}, Score: score(5)},
				},
			},
			{
				QuestionID: 2,
				Submissions: []domain.Submission{
					{PlayerID: 2, AnswerIDs: []int{2}, Score: score(0)},
					{PlayerID: 1, AnswerIDs: []int{1}, Score: score(5)},
				},
			},
		},
	}

	rows := PlayerResults(s)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].PlayerName)
	assert.Equal(t, []domain.ScoreAndRank{{Score: 0, Rank: 0}, {Score: 5, Rank: 1}}, rows[0].Questions)
	assert.Equal(t, "B", rows[1].PlayerName)
	assert.Equal(t, []domain.ScoreAndRank{{Score: 5, Rank: 1}, {Score: 0, Rank: 2}}, rows[1].Questions)
}

func TestPlayerResultsTiesShareRank(t *testing.T) {
	s := domain.Session{
		Players: []domain.Player{{PlayerID: 1, Name: "a"}, {PlayerID: 2, Name: "b"}, {PlayerID: 3, Name: "c"}},
		SessionQuestions: []domain.SessionQuestion{{
			Submissions: []domain.Submission{
				{PlayerID: 3, Score: score(1)},
				{PlayerID: 1, Score: score(4)},
				{PlayerID: 2, Score: score(4)},
			},
		}},
	}

	rows := PlayerResults(s)
	assert.Equal(t, domain.ScoreAndRank{Score: 4, Rank: 1}, rows[0].Questions[0])
	assert.Equal(t, domain.ScoreAndRank{Score: 4, Rank: 1}, rows[1].Questions[0])
	assert.Equal(t, domain.ScoreAndRank{Score: 1, Rank: 2}, rows[2].Questions[0])
}
