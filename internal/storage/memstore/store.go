// Package memstore is the in-memory twin of the sqlite adapter. It backs
// tests and the degraded mode the bot falls into when sqlite is unreachable.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/tosachii/ryosa/internal/core"
)

// maxRetained bounds each turn list so a storage outage cannot grow memory
// without limit. Far above any configured context window.
const maxRetained = 256

type Store struct {
	mu       sync.RWMutex
	users    map[string]core.UserProfile
	byChan   map[string][]core.Turn
	byUser   map[string][]core.Turn
	nextTurn int64
}

func New() *Store {
	return &Store{
		users:  make(map[string]core.UserProfile),
		byChan: make(map[string][]core.Turn),
		byUser: make(map[string][]core.Turn),
	}
}

func (s *Store) GetUser(_ context.Context, userID string) (core.UserProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.users[core.NormalizeUserID(userID)]
	if !ok {
		return core.UserProfile{}, false, nil
	}
	p.Notes = append([]string(nil), p.Notes...)
	return p, true, nil
}

func (s *Store) UpsertUser(_ context.Context, profile core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.UserID = core.NormalizeUserID(profile.UserID)
	profile.Notes = append([]string(nil), profile.Notes...)
	s.users[profile.UserID] = profile
	return nil
}

func (s *Store) AppendTurn(_ context.Context, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	turn.UserID = core.NormalizeUserID(turn.UserID)
	s.nextTurn++
	turn.ID = s.nextTurn

	s.byChan[turn.Channel] = trim(append(s.byChan[turn.Channel], turn))
	s.byUser[turn.UserID] = trim(append(s.byUser[turn.UserID], turn))
	return nil
}

func (s *Store) RecentTurns(_ context.Context, channel string, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.byChan[channel], limit), nil
}

func (s *Store) RecentUserTurns(_ context.Context, userID string, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.byUser[core.NormalizeUserID(userID)], limit), nil
}

func trim(turns []core.Turn) []core.Turn {
	if len(turns) > maxRetained {
		turns = turns[len(turns)-maxRetained:]
	}
	return turns
}

func tail(turns []core.Turn, limit int) []core.Turn {
	if limit <= 0 || limit > len(turns) {
		limit = len(turns)
	}
	out := make([]core.Turn, limit)
	copy(out, turns[len(turns)-limit:])
	return out
}
