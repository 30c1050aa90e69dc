package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tosachii/ryosa/internal/core"
)

// UsersRepo persists long-term user profiles. Every failure is classified as
// core.ErrStorageUnavailable so callers can degrade instead of crash.
type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) GetUser(ctx context.Context, userID string) (core.UserProfile, bool, error) {
	userID = core.NormalizeUserID(userID)

	query := `SELECT user_id, display_name, platform, first_seen, last_seen, interaction_count, notes
	          FROM users WHERE user_id = ?`

	var p core.UserProfile
	var platform, notesJSON string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.DisplayName, &platform, &p.FirstSeen, &p.LastSeen, &p.InteractionCount, &notesJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, false, nil
	}
	if err != nil {
		return core.UserProfile{}, false, storageErr("get user", err)
	}

	p.Platform = core.Platform(platform)
	if notesJSON != "" {
		if err := json.Unmarshal([]byte(notesJSON), &p.Notes); err != nil {
			return core.UserProfile{}, false, storageErr("decode notes", err)
		}
	}
	return p, true, nil
}

func (r *UsersRepo) UpsertUser(ctx context.Context, profile core.UserProfile) error {
	profile.UserID = core.NormalizeUserID(profile.UserID)

	notesJSON, err := json.Marshal(profile.Notes)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}

	query := `INSERT INTO users (user_id, display_name, platform, first_seen, last_seen, interaction_count, notes)
	          VALUES (?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(user_id) DO UPDATE SET
	              display_name = excluded.display_name,
	              last_seen = excluded.last_seen,
	              interaction_count = excluded.interaction_count,
	              notes = excluded.notes`

	_, err = r.db.ExecContext(ctx, query,
		profile.UserID, profile.DisplayName, string(profile.Platform),
		profile.FirstSeen, profile.LastSeen, profile.InteractionCount, string(notesJSON),
	)
	if err != nil {
		return storageErr("upsert user", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(core.ErrStorageUnavailable, err))
}
