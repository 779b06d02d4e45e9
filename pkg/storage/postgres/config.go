package postgres

import "time"

// Config configures the PostgreSQL grievance log.
type Config struct {
	// DSN, e.g. "postgres://desk:secret@db:5432/servicedesk?sslmode=require".
	DSN string

	// Pool bounds. Appends hold a table lock, so a small pool is enough
	// (defaults 4 and 0).
	MaxConns int32
	MinConns int32

	// MaxConnLifetime recycles pooled connections (default 30m).
	MaxConnLifetime time.Duration

	// MigrateOnStart creates the grievances table if it is missing.
	MigrateOnStart bool
}

func (c *Config) defaults() {
	if c.MaxConns <= 0 {
		c.MaxConns = 4
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		c.MinConns = 0
	}
	if c.MaxConnLifetime <= 0 {
		c.MaxConnLifetime = 30 * time.Minute
	}
}
