package theme

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ziadkadry99/flowchat/internal/db"
)

// Theme is the UI colour scheme.
type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// preferenceKey is the single key-value slot the theme is persisted under.
const preferenceKey = "theme"

// FromStored maps a persisted value to a theme. Anything other than "light",
// including an empty slot, means dark.
func FromStored(v string) Theme {
	if v == string(Light) {
		return Light
	}
	return Dark
}

// Parse validates a user-supplied theme name.
func Parse(v string) (Theme, error) {
	switch Theme(v) {
	case Dark, Light:
		return Theme(v), nil
	default:
		return "", fmt.Errorf("invalid theme %q: must be dark or light", v)
	}
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == Light {
		return Dark
	}
	return Light
}

// IsDark reports whether t is the dark theme.
func (t Theme) IsDark() bool { return t != Light }

// Mermaid returns the diagram renderer's theme name for t.
func (t Theme) Mermaid() string {
	if t.IsDark() {
		return "dark"
	}
	return "default"
}

// Store persists the chosen theme.
type Store interface {
	Load(ctx context.Context) (Theme, error)
	Save(ctx context.Context, t Theme) error
}

// SQLStore keeps the theme in the preferences table.
type SQLStore struct {
	db *db.DB
}

// NewSQLStore creates a theme store backed by the local database.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

func (s *SQLStore) Load(ctx context.Context) (Theme, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, preferenceKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return FromStored(""), nil
	}
	if err != nil {
		return "", fmt.Errorf("loading theme: %w", err)
	}
	return FromStored(v), nil
}

func (s *SQLStore) Save(ctx context.Context, t Theme) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		preferenceKey, string(t), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}
	return nil
}

// MemoryStore keeps the theme in memory.
type MemoryStore struct {
	mu    sync.Mutex
	value string
}

func (m *MemoryStore) Load(ctx context.Context) (Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FromStored(m.value), nil
}

func (m *MemoryStore) Save(ctx context.Context, t Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = string(t)
	return nil
}
