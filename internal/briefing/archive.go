package briefing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
)

type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Archive keeps generated briefings in the daily_briefings table.
type Archive struct {
	db pgxExecutor
}

func NewArchive(pool *pgxpool.Pool) *Archive {
	if pool == nil {
		panic("briefing: pgx pool required")
	}
	return newArchiveWithExec(pool)
}

func newArchiveWithExec(db pgxExecutor) *Archive {
	return &Archive{db: db}
}

const upsertBriefingSQL = `
	INSERT INTO daily_briefings (user_id, briefing_date, message_id, content, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, briefing_date) DO UPDATE
	SET message_id = EXCLUDED.message_id, content = EXCLUDED.content, created_at = EXCLUDED.created_at
`

func (a *Archive) Save(ctx context.Context, userID, date string, msg chat.Message) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("briefing: encode archive content: %w", err)
	}
	if _, err := a.db.Exec(ctx, upsertBriefingSQL, userID, date, msg.ID, content, msg.Timestamp); err != nil {
		return fmt.Errorf("briefing: archive briefing: %w", err)
	}
	return nil
}
