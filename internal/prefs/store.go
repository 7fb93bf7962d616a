// Package prefs persists the client-local preferences: the theme and the
// currently selected facility. Both are plain key-value entries; the
// store is the single mutation point for them.
package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	keyTheme    = "theme"
	keyFacility = "facility_id"

	// ThemeLight and ThemeDark are the only accepted theme values.
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrInvalidTheme is returned for a theme outside {light, dark}.
var ErrInvalidTheme = errors.New("prefs: theme must be light or dark")

// Store is the SQLite-backed preference store.
type Store struct {
	db           *sql.DB
	defaultTheme string
	mu           sync.Mutex
}

// Open opens (creating if needed) the preference store under dataPath.
func Open(dataPath, defaultTheme string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "prefs.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if defaultTheme != ThemeLight && defaultTheme != ThemeDark {
		defaultTheme = ThemeDark
	}

	s := &Store{db: db, defaultTheme: defaultTheme}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *Store) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	return err
}

// Theme returns the stored theme, falling back to the configured default.
func (s *Store) Theme() string {
	if value, ok := s.get(keyTheme); ok {
		if value == ThemeLight || value == ThemeDark {
			return value
		}
	}
	return s.defaultTheme
}

// SetTheme stores the theme preference.
func (s *Store) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	return s.set(keyTheme, theme)
}

// Facility returns the selected facility id, if one has been stored.
func (s *Store) Facility() (int64, bool) {
	value, ok := s.get(keyFacility)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// SetFacility stores the selected facility id.
func (s *Store) SetFacility(id int64) error {
	return s.set(keyFacility, strconv.FormatInt(id, 10))
}

// ClearFacility removes the facility selection.
func (s *Store) ClearFacility() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM preferences WHERE key = ?", keyFacility)
	return err
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}
