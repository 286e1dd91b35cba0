// Package sqlite keeps the client-local session state (credential and last
// analysis) in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	_ "modernc.org/sqlite"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

// FileName is the database file created inside the state directory.
const FileName = "session.db"

// Store implements domain.SessionStore. Each table holds at most one row.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates dir if needed and opens (or creates) the database in it.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("op=sqlite.Open: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("op=sqlite.Open: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("op=sqlite.Open: init schema: %w", err)
	}
	// The file holds an API key.
	if err := os.Chmod(path, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("op=sqlite.Open: chmod: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS credential (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	api_key    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS last_analysis (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	analysis_id TEXT NOT NULL,
	flow        TEXT NOT NULL,
	model       TEXT NOT NULL,
	result_json TEXT NOT NULL,
	created_at  TEXT NOT NULL
);`)
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// Credential returns the stored API key or domain.ErrNotFound.
func (s *Store) Credential(ctx domain.Context) (string, error) {
	ctx, span := otel.Tracer("repo.session").Start(ctx, "session.Credential")
	defer span.End()
	var key string
	err := s.db.QueryRowContext(ctx, `SELECT api_key FROM credential WHERE id = 1`).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("op=session.credential: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("op=session.credential: %w", err)
	}
	return key, nil
}

// SaveCredential stores or replaces the API key.
func (s *Store) SaveCredential(ctx domain.Context, credential string) error {
	ctx, span := otel.Tracer("repo.session").Start(ctx, "session.SaveCredential")
	defer span.End()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO credential (id, api_key, updated_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET api_key = excluded.api_key, updated_at = excluded.updated_at`,
		credential, now())
	if err != nil {
		return fmt.Errorf("op=session.save_credential: %w", err)
	}
	return nil
}

// ClearCredential deletes the API key. Clearing an empty store is not an error.
func (s *Store) ClearCredential(ctx domain.Context) error {
	ctx, span := otel.Tracer("repo.session").Start(ctx, "session.ClearCredential")
	defer span.End()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credential`); err != nil {
		return fmt.Errorf("op=session.clear_credential: %w", err)
	}
	return nil
}

// LastAnalysis returns the last successful analysis or domain.ErrNotFound.
func (s *Store) LastAnalysis(ctx domain.Context) (domain.Analysis, error) {
	ctx, span := otel.Tracer("repo.session").Start(ctx, "session.LastAnalysis")
	defer span.End()
	var (
		a   domain.Analysis
		raw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT analysis_id, flow, model, result_json FROM last_analysis WHERE id = 1`).
		Scan(&a.ID, &a.Flow, &a.Model, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Analysis{}, fmt.Errorf("op=session.last_analysis: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("op=session.last_analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &a.Result); err != nil {
		return domain.Analysis{}, fmt.Errorf("op=session.last_analysis: decode: %w", err)
	}
	return a, nil
}

// SaveLastAnalysis replaces the last analysis.
func (s *Store) SaveLastAnalysis(ctx domain.Context, a domain.Analysis) error {
	ctx, span := otel.Tracer("repo.session").Start(ctx, "session.SaveLastAnalysis")
	defer span.End()
	raw, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("op=session.save_last_analysis: encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO last_analysis (id, analysis_id, flow, model, result_json, created_at) VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET analysis_id = excluded.analysis_id, flow = excluded.flow,
	model = excluded.model, result_json = excluded.result_json, created_at = excluded.created_at`,
		a.ID, string(a.Flow), a.Model, string(raw), now())
	if err != nil {
		return fmt.Errorf("op=session.save_last_analysis: %w", err)
	}
	return nil
}

var _ domain.SessionStore = (*Store)(nil)
