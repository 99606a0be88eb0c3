package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperr "github.com/habiter/habiter/internal/errors"
)

// Option is a cross-session key/value flag. Keys are case-insensitive.
type Option struct {
	Key   string
	Value string
}

// GetOption returns the option for key, matched case-insensitively.
// A missing key returns (nil, nil) so callers can distinguish "never
// set" from a storage failure.
func (s *Store) GetOption(key string) (*Option, error) {
	if s.db == nil || key == "" {
		return nil, nil
	}

	row := s.db.QueryRow("SELECT key, value FROM options WHERE key = ? COLLATE NOCASE", key)

	var opt Option
	err := row.Scan(&opt.Key, &opt.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read option %q: %w", key, err)
	}
	return &opt, nil
}

// SetOption creates the option or updates its value when the key
// already exists. Keys are stored lowercased.
func (s *Store) SetOption(key, value string) error {
	if key == "" {
		return fmt.Errorf("no key specified for option")
	}
	if s.db == nil {
		return apperr.ErrNotReady
	}

	_, err := s.db.Exec(`
		INSERT INTO options (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strings.ToLower(key), value)
	if err != nil {
		return fmt.Errorf("failed to save option %q: %w", key, err)
	}
	return nil
}
