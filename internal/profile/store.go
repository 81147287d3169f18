// Package profile persists selection state (attribute maps) outside the
// selection engine: named snapshots in SQLite and portable TOML files.
package profile

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	rerrors "retriever/internal/errors"
	"retriever/internal/logging"
	"retriever/internal/selection"
)

// CurrentProfile is the reserved name of the working state the CLI
// mutates between invocations.
const CurrentProfile = "current"

// Profile is a named snapshot of an attribute map.
type Profile struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	Attributes selection.AttributeMap `json:"attributes"`
}

// Summary describes a stored profile without decoding its payload.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	Encoding  Encoding  `json:"encoding"`
	Bytes     int       `json:"bytes"`
}

// Store provides persistence for profiles in a SQLite database.
type Store struct {
	conn     *sql.DB
	logger   *logging.Logger
	dbPath   string
	compress bool
	now      func() time.Time
}

// OpenStore opens or creates the profile database at dbPath.
func OpenStore(dbPath string, compress bool, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, rerrors.New(rerrors.StoreUnavailable, "failed to create store directory", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, rerrors.New(rerrors.StoreUnavailable, "failed to open profile database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, rerrors.New(rerrors.StoreUnavailable, "failed to set pragma", err)
		}
	}

	store := &Store{
		conn:     conn,
		logger:   logger,
		dbPath:   dbPath,
		compress: compress,
		now:      time.Now,
	}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, rerrors.New(rerrors.StoreUnavailable, "failed to initialize profile schema", err)
	}

	logger.Debug("Opened profile store", map[string]interface{}{
		"path":     dbPath,
		"compress": compress,
	})
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			encoding TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_updated_at ON profiles(updated_at DESC);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Save stores attrs under name, replacing any previous payload. The
// profile keeps its id and creation time across saves.
func (s *Store) Save(name string, attrs selection.AttributeMap) (*Profile, error) {
	if name == "" {
		return nil, rerrors.Newf(rerrors.ProfileNameRequired, "profile name is required")
	}

	payload, encoding, err := Encode(attrs, s.compress)
	if err != nil {
		return nil, err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return nil, rerrors.New(rerrors.StoreUnavailable, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	profile := &Profile{Name: name, UpdatedAt: now, Attributes: attrs}

	var createdAt string
	err = tx.QueryRow(`SELECT id, created_at FROM profiles WHERE name = ?`, name).Scan(&profile.ID, &createdAt)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		profile.ID = uuid.New().String()
		profile.CreatedAt = now
		_, err = tx.Exec(`
			INSERT INTO profiles (id, name, encoding, payload, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, profile.ID, name, string(encoding), payload, formatTime(now), formatTime(now))
	case err == nil:
		profile.CreatedAt = parseTime(createdAt)
		_, err = tx.Exec(`
			UPDATE profiles SET encoding = ?, payload = ?, updated_at = ?
			WHERE id = ?
		`, string(encoding), payload, formatTime(now), profile.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save profile %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit profile %q: %w", name, err)
	}

	s.logger.Debug("Saved profile", map[string]interface{}{
		"profile":  name,
		"id":       profile.ID,
		"encoding": encoding,
		"bytes":    len(payload),
	})
	return profile, nil
}

// Load reads the profile stored under name.
func (s *Store) Load(name string) (*Profile, error) {
	var (
		profile   Profile
		encoding  string
		payload   []byte
		createdAt string
		updatedAt string
	)
	err := s.conn.QueryRow(`
		SELECT id, name, encoding, payload, created_at, updated_at
		FROM profiles WHERE name = ?
	`, name).Scan(&profile.ID, &profile.Name, &encoding, &payload, &createdAt, &updatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, rerrors.Newf(rerrors.ProfileNotFound, "profile %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %q: %w", name, err)
	}

	attrs, err := Decode(payload, Encoding(encoding))
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	profile.Attributes = attrs
	profile.CreatedAt = parseTime(createdAt)
	profile.UpdatedAt = parseTime(updatedAt)
	return &profile, nil
}

// List returns all profiles, most recently updated first.
func (s *Store) List() ([]Summary, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, encoding, length(payload), updated_at
		FROM profiles ORDER BY updated_at DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum       Summary
			encoding  string
			updatedAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &encoding, &sum.Bytes, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		sum.Encoding = Encoding(encoding)
		sum.UpdatedAt = parseTime(updatedAt)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Delete removes the profile stored under name.
func (s *Store) Delete(name string) error {
	result, err := s.conn.Exec(`DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete profile %q: %w", name, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return rerrors.Newf(rerrors.ProfileNotFound, "profile %q not found", name)
	}
	s.logger.Debug("Deleted profile", map[string]interface{}{"profile": name})
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
