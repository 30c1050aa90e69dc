package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tosachii/ryosa/internal/core"
)

// TurnsRepo persists the rolling dialogue. Writes are durable before return;
// the window itself is enforced by readers via limit.
type TurnsRepo struct {
	db *sql.DB
}

func NewTurnsRepo(db *sql.DB) *TurnsRepo {
	return &TurnsRepo{db: db}
}

func (r *TurnsRepo) AppendTurn(ctx context.Context, turn core.Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	query := `INSERT INTO turns (user_id, role, text, channel, platform, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		core.NormalizeUserID(turn.UserID), turn.Role, turn.Text, turn.Channel,
		string(turn.Platform), turn.Timestamp,
	)
	if err != nil {
		return storageErr("append turn", err)
	}
	return nil
}

func (r *TurnsRepo) RecentTurns(ctx context.Context, channel string, limit int) ([]core.Turn, error) {
	query := `SELECT id, user_id, role, text, channel, platform, created_at
	          FROM turns WHERE channel = ? ORDER BY id DESC LIMIT ?`
	return r.queryTurns(ctx, query, channel, limit)
}

func (r *TurnsRepo) RecentUserTurns(ctx context.Context, userID string, limit int) ([]core.Turn, error) {
	query := `SELECT id, user_id, role, text, channel, platform, created_at
	          FROM turns WHERE user_id = ? ORDER BY id DESC LIMIT ?`
	return r.queryTurns(ctx, query, core.NormalizeUserID(userID), limit)
}

func (r *TurnsRepo) queryTurns(ctx context.Context, query, key string, limit int) ([]core.Turn, error) {
	rows, err := r.db.QueryContext(ctx, query, key, limit)
	if err != nil {
		return nil, storageErr("query turns", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		var platform string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Text, &t.Channel, &platform, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Platform = core.Platform(platform)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate turns", err)
	}

	// Rows arrived newest first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
