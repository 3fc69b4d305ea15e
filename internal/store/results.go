package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/park285/famhub/internal/games"
)

// SaveResult writes a finished match once and credits the winner's reward
// once. Repeated calls for the same match are no-ops.
func (s *Store) SaveResult(ctx context.Context, r games.Result) (credited bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO match_results (
			match_id, kind, player1_id, player2_id, winner_id, draw, method,
			player1_score, player2_score, move_count, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (match_id) DO NOTHING`),
		r.MatchID, string(r.Kind), r.Player1ID, r.Player2ID, r.WinnerID, r.Draw, r.Method,
		r.Player1Score, r.Player2Score, r.MoveCount, r.StartedAt.UTC(), r.EndedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert result: %w", err)
	}
	if r.WinnerID != "" && r.Reward > 0 {
		now := time.Now().UTC()
		var res sql.Result
		res, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO coin_credits (match_id, user_id, amount, credited_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (match_id, user_id) DO NOTHING`), r.MatchID, r.WinnerID, r.Reward, now)
		if err != nil {
			return false, fmt.Errorf("insert credit: %w", err)
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return false, err
		}
		if n == 1 {
			if _, err = tx.ExecContext(ctx, s.rebind(
				`INSERT INTO users (id, username, coins, created_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET coins = users.coins + excluded.coins`),
				r.WinnerID, r.WinnerID, r.Reward, now); err != nil {
				return false, fmt.Errorf("credit coins: %w", err)
			}
			credited = true
		}
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return credited, nil
}
