package sqlite

import "database/sql"

// Store bundles both repositories into the core.Store surface.
type Store struct {
	*UsersRepo
	*TurnsRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		UsersRepo: NewUsersRepo(db),
		TurnsRepo: NewTurnsRepo(db),
	}
}
