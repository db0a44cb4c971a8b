package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"quiz-session-service/internal/domain"
)

// OpenBun opens a bun handle over the pgdriver connector.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type sessionResult struct {
	bun.BaseModel `bun:"table:session_results"`

	SessionID  int                 `bun:"session_id,pk"`
	QuizID     int                 `bun:"quiz_id,notnull"`
	OwnerToken string              `bun:"owner_token,notnull"`
	Players    int                 `bun:"players,notnull"`
	Results    domain.FinalResults `bun:"results,type:jsonb,notnull"`
	ArchivedAt time.Time           `bun:"archived_at,notnull"`
}

// ResultsArchive stores each session's final results in session_results.
type ResultsArchive struct {
	db  *bun.DB
	now func() time.Time
}

func NewResultsArchive(db *bun.DB) *ResultsArchive {
	return &ResultsArchive{db: db, now: time.Now}
}

// Archive upserts the final results of a session.
func (a *ResultsArchive) Archive(ctx context.Context, snapshot domain.Session, results domain.FinalResults) error {
	row := &sessionResult{
		SessionID:  snapshot.SessionID,
		QuizID:     snapshot.Metadata.QuizID,
		OwnerToken: snapshot.OwnerToken,
		Players:    len(snapshot.Players),
		Results:    results,
		ArchivedAt: a.now().UTC(),
	}
	_, err := a.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("players = EXCLUDED.players").
		Set("results = EXCLUDED.results").
		Set("archived_at = EXCLUDED.archived_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive session %d: %w", snapshot.SessionID, err)
	}
	return nil
}

// Load returns the archived results of a session.
func (a *ResultsArchive) Load(ctx context.Context, sessionID int) (domain.FinalResults, error) {
	row := new(sessionResult)
	err := a.db.NewSelect().Model(row).Where("session_id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FinalResults{}, domain.ErrResultsNotFound
	}
	if err != nil {
		return domain.FinalResults{}, err
	}
	return row.Results, nil
}
