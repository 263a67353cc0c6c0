// Package credstore persists the bearer token and user record across restarts.
//
// The layout mirrors browser localStorage: a single string-keyed table with
// one row for the token and one for the JSON-encoded user.
package credstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"LaurelinChat/internal/session"
)

const (
	keyToken = "auth_token"
	keyUser  = "current_user"
)

// Store is a sqlite-backed credential store
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the credential database at path
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTable := `
	CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Save persists the token and user together
func (s *Store) Save(token string, user *session.User) error {
	if token == "" || user == nil {
		return errors.New("credential requires a token and a user")
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{keyToken: token, keyUser: string(userJSON)} {
		if _, err := tx.Exec("INSERT OR REPLACE INTO local_storage (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("credential saved", "user_id", user.UserID)
	return nil
}

// Load returns the stored credential. Missing, empty or malformed data is
// reported as absent, never as an error.
func (s *Store) Load() (session.Credential, bool) {
	token, ok := s.get(keyToken)
	if !ok || token == "" {
		return session.Credential{}, false
	}

	raw, ok := s.get(keyUser)
	if !ok {
		return session.Credential{}, false
	}

	var user session.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("stored user is malformed, ignoring credential", "error", err)
		return session.Credential{}, false
	}

	return session.Credential{Token: token, User: &user}, true
}

// Clear removes the stored credential. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM local_storage WHERE key IN (?, ?)", keyToken, keyUser); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	s.logger.Info("credential cleared")
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to read credential store", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}
