package repository

import (
	"database/sql"
	"strings"

	"github.com/rs/zerolog"
)

// Store is the sqlite-backed persistence gateway for the marketpoll
// engine. Methods are grouped per concern across the files in this
// package.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Asset-key lists are stored as a comma-joined column; keys themselves
// never contain commas.
func joinKeys(keys []string) string {
	return strings.Join(keys, ",")
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// likeEscaper neutralizes LIKE metacharacters in user-supplied asset
// keys; queries using it must carry ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
