// Package store keeps accounts, finished match results and the coin ledger
// in SQL. Postgres is used in production; SQLite serves single-box deploys
// and tests.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open picks the driver from the URL scheme: sqlite:// for SQLite,
// anything else goes to lib/pq.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	if path, ok := strings.CutPrefix(databaseURL, "sqlite://"); ok {
		d = dialectSQLite
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one connection; an in-memory database is per connection
		db.SetMaxOpenConns(1)
	} else {
		d = dialectPostgres
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, dialect: d}
	if d == dialectSQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		username   TEXT NOT NULL,
		coins      INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		match_id      TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		player1_id    TEXT NOT NULL,
		player2_id    TEXT NOT NULL,
		winner_id     TEXT NOT NULL DEFAULT '',
		draw          BOOLEAN NOT NULL DEFAULT FALSE,
		method        TEXT NOT NULL,
		player1_score INTEGER NOT NULL DEFAULT 0,
		player2_score INTEGER NOT NULL DEFAULT 0,
		move_count    INTEGER NOT NULL DEFAULT 0,
		started_at    TIMESTAMP NOT NULL,
		ended_at      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS coin_credits (
		match_id    TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		amount      INTEGER NOT NULL,
		credited_at TIMESTAMP NOT NULL,
		PRIMARY KEY (match_id, user_id)
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $N for Postgres.
func (s *Store) rebind(q string) string {
	if s.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
