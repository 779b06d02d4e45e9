// Package postgres provides a PostgreSQL grievance log. It uses pgx/v5 for
// connection pooling; ids are assigned under a table lock so they stay
// dense under concurrent appends.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/servicedesk/pkg/storage"
)

// Store is a PostgreSQL-backed GrievanceLog.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ storage.GrievanceLog = (*Store)(nil)

// New connects to PostgreSQL. If MigrateOnStart is true, schema migrations
// are applied.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, now: time.Now}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Append inserts a grievance with id count+1. The table is locked in
// EXCLUSIVE mode for the duration of the transaction, which blocks other
// appends but not readers.
func (s *Store) Append(ctx context.Context, d storage.GrievanceDraft) (storage.Grievance, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storage.Grievance{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "LOCK TABLE grievances IN EXCLUSIVE MODE"); err != nil {
		return storage.Grievance{}, fmt.Errorf("locking grievances: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, "SELECT count(*) FROM grievances").Scan(&count); err != nil {
		return storage.Grievance{}, fmt.Errorf("counting grievances: %w", err)
	}

	now := s.now()
	g := storage.NewGrievance(count+1, d, now)

	if _, err := tx.Exec(ctx, `
		INSERT INTO grievances (id, logged_at, complainant, accused, description, status, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		g.ID, now, g.Complainant, g.Accused, g.Description, g.Status, nullString(storage.SessionFrom(ctx)),
	); err != nil {
		return storage.Grievance{}, fmt.Errorf("inserting grievance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.Grievance{}, fmt.Errorf("committing grievance: %w", err)
	}

	slog.Debug("grievance stored", "backend", "postgres", "id", g.ID, "session_id", storage.SessionFrom(ctx))
	return g, nil
}

// List returns all grievances ordered by id.
func (s *Store) List(ctx context.Context) ([]storage.Grievance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, logged_at, complainant, accused, description, status
		FROM grievances
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying grievances: %w", err)
	}
	defer rows.Close()

	out := []storage.Grievance{}
	for rows.Next() {
		var g storage.Grievance
		var loggedAt time.Time
		if err := rows.Scan(&g.ID, &loggedAt, &g.Complainant, &g.Accused, &g.Description, &g.Status); err != nil {
			return nil, fmt.Errorf("scanning grievance: %w", err)
		}
		g.Timestamp = loggedAt.Format(storage.TimestampLayout)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grievances: %w", err)
	}
	return out, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
