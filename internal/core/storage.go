package core

import (
	"context"
)

// UserRepository holds long-term per-user profiles.
type UserRepository interface {
	// GetUser returns the profile for the normalized user id. The boolean
	// reports presence; absence is not an error.
	GetUser(ctx context.Context, userID string) (UserProfile, bool, error)
	UpsertUser(ctx context.Context, profile UserProfile) error
}

// TurnRepository holds the rolling dialogue used for short-term context.
type TurnRepository interface {
	AppendTurn(ctx context.Context, turn Turn) error
	// RecentTurns returns up to limit turns for a channel in chronological
	// order, newest last.
	RecentTurns(ctx context.Context, channel string, limit int) ([]Turn, error)
	RecentUserTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
}

// Store is the full persistence surface of the memory layer.
type Store interface {
	UserRepository
	TurnRepository
}
