package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/ghibli-blocker/internal/entity"
)

const schema = `
	CREATE TABLE IF NOT EXISTS blocked_posts (
		id            UUID PRIMARY KEY,
		post_url      TEXT NOT NULL DEFAULT '',
		media_url     TEXT NOT NULL,
		mode          TEXT NOT NULL,
		blocked_count BIGINT NOT NULL,
		blocked_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS blocked_posts_blocked_at_idx ON blocked_posts (blocked_at DESC);
`

// BlockLogRepoImpl provides a concrete implementation for the BlockLogRepository interface using PostgreSQL.
type BlockLogRepoImpl struct {
	db *pgxpool.Pool
}

// NewBlockLogRepo creates a new instance of BlockLogRepoImpl.
func NewBlockLogRepo(db *pgxpool.Pool) *BlockLogRepoImpl {
	return &BlockLogRepoImpl{db: db}
}

// EnsureSchema creates the blocked_posts table if it does not exist.
func (r *BlockLogRepoImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// Save inserts a block event. Re-saving the same id is a no-op.
func (r *BlockLogRepoImpl) Save(ctx context.Context, event *entity.BlockEvent) error {
	query := `
		INSERT INTO blocked_posts (id, post_url, media_url, mode, blocked_count, blocked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.PostURL,
		event.MediaURL,
		string(event.Mode),
		int64(event.BlockedCount),
		event.BlockedAt,
	)
	return err
}

// ListRecent retrieves up to limit events, newest first.
func (r *BlockLogRepoImpl) ListRecent(ctx context.Context, limit int) ([]*entity.BlockEvent, error) {
	query := `
		SELECT id::text, post_url, media_url, mode, blocked_count, blocked_at
		FROM blocked_posts
		ORDER BY blocked_at DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*entity.BlockEvent
	for rows.Next() {
		var (
			ev    entity.BlockEvent
			mode  string
			count int64
		)
		if err := rows.Scan(&ev.ID, &ev.PostURL, &ev.MediaURL, &mode, &count, &ev.BlockedAt); err != nil {
			return nil, err
		}
		ev.Mode = entity.Mode(mode)
		ev.BlockedCount = uint64(count)
		events = append(events, &ev)
	}
	return events, rows.Err()
}
