// Package sqlite provides a SQLite grievance log using the pure-Go
// modernc.org/sqlite driver. Appends run in BEGIN IMMEDIATE transactions so
// the count and the insert happen under SQLite's write lock.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rhuss/servicedesk/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS grievances (
	id          INTEGER PRIMARY KEY,
	logged_at   TEXT NOT NULL,
	complainant TEXT NOT NULL,
	accused     TEXT NOT NULL,
	description TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	session_id  TEXT
);
`

// Store is a SQLite-backed GrievanceLog.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.GrievanceLog = (*Store)(nil)

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Append inserts a grievance with id count+1.
func (s *Store) Append(ctx context.Context, d storage.GrievanceDraft) (storage.Grievance, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return storage.Grievance{}, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	// database/sql cannot express BEGIN IMMEDIATE, so the transaction is
	// driven by hand on a pinned connection.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return storage.Grievance{}, fmt.Errorf("%w: %w", storage.ErrBusy, err)
	}
	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(context.Background(), "ROLLBACK") //nolint:errcheck
		}
	}()

	var count int
	if err := conn.QueryRowContext(ctx, "SELECT count(*) FROM grievances").Scan(&count); err != nil {
		return storage.Grievance{}, fmt.Errorf("counting grievances: %w", err)
	}

	g := storage.NewGrievance(count+1, d, s.now())

	var session any
	if id := storage.SessionFrom(ctx); id != "" {
		session = id
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO grievances (id, logged_at, complainant, accused, description, status, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Timestamp, g.Complainant, g.Accused, g.Description, g.Status, session,
	); err != nil {
		return storage.Grievance{}, fmt.Errorf("inserting grievance: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return storage.Grievance{}, fmt.Errorf("committing grievance: %w", err)
	}
	committed = true

	slog.Debug("grievance stored", "backend", "sqlite", "id", g.ID, "session_id", storage.SessionFrom(ctx))
	return g, nil
}

// List returns all grievances ordered by id.
func (s *Store) List(ctx context.Context) ([]storage.Grievance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, logged_at, complainant, accused, description, status FROM grievances ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying grievances: %w", err)
	}
	defer rows.Close()

	out := []storage.Grievance{}
	for rows.Next() {
		var g storage.Grievance
		if err := rows.Scan(&g.ID, &g.Timestamp, &g.Complainant, &g.Accused, &g.Description, &g.Status); err != nil {
			return nil, fmt.Errorf("scanning grievance: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
