package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/famhub/pkg/famdto"
)

// TouchUser records a user and refreshes the display name when one is given.
func (s *Store) TouchUser(ctx context.Context, id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		_, err := s.db.ExecContext(ctx, s.rebind(
			`INSERT INTO users (id, username, coins, created_at) VALUES (?, ?, 0, ?)
			 ON CONFLICT (id) DO NOTHING`), id, id, time.Now().UTC())
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO users (id, username, coins, created_at) VALUES (?, ?, 0, ?)
		 ON CONFLICT (id) DO UPDATE SET username = excluded.username`), id, name, time.Now().UTC())
	return err
}

// DisplayName returns the stored username, or "" for unknown users.
func (s *Store) DisplayName(ctx context.Context, id string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT username FROM users WHERE id = ?`), strings.TrimSpace(id)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	return name, nil
}

// ListExcept returns every known user except id, ordered by name.
func (s *Store) ListExcept(ctx context.Context, id string) ([]famdto.Player, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, username, coins FROM users WHERE id <> ? ORDER BY username, id`), strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := []famdto.Player{}
	for rows.Next() {
		var p famdto.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Coins); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Coins(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT coins FROM users WHERE id = ?`), strings.TrimSpace(id)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
