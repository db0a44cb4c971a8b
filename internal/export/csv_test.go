package export

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quiz-session-service/internal/domain"
)

func TestRenderCSVKeepsTrailingComma(t *testing.T) {
	rows := []domain.PlayerResults{
		{PlayerName: "A", Questions: []domain.ScoreAndRank{{Score: 0, Rank: 0}, {Score: 5, Rank: 1}}},
		{PlayerName: "B", Questions: []domain.ScoreAndRank{{Score: 5, Rank: 1}, {Score: 0, Rank: 2}}},
	}

	out, err := RenderCSV(2, rows)
	require.NoError(t, err)

	want := "Player,question1score,question1rank,question2score,question2rank\n" +
		"A,0,0,5,1,\n" +
		"B,5,1,0,2,\n"
	assert.Equal(t, want, string(out))
}

func TestRenderCSVQuotesNames(t *testing.T) {
	out, err := RenderCSV(1, []domain.PlayerResults{
		{PlayerName: "Smith, J", Questions: []domain.ScoreAndRank{{Score: 1, Rank: 1}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Player,question1score,question1rank\n\"Smith, J\",1,1,\n", string(out))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "quiz_3_session_12.csv", FileName(3, 12))
}

func TestDirStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewDirStore(t.TempDir())

	require.NoError(t, store.Write(ctx, "quiz_1_session_1.csv", []byte("Player\n")))

	rc, err := store.Open(ctx, "quiz_1_session_1.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Player\n", string(data))
}

func TestDirStoreRejectsUnknownAndUnsafeNames(t *testing.T) {
	ctx := context.Background()
	store := NewDirStore(t.TempDir())

	_, err := store.Open(ctx, "missing.csv")
	assert.ErrorIs(t, err, domain.ErrResultsNotFound)

	_, err = store.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrResultsNotFound)

	assert.ErrorIs(t, store.Write(ctx, "a/b.csv", nil), domain.ErrResultsNotFound)
}
