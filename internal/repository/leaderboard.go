// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ktane-bot/internal/model"
)

// LeaderboardRepository persists defuser statistics.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// AddSolve increments a user's solve tally, creating the row if needed.
func (r *LeaderboardRepository) AddSolve(ctx context.Context, userID int64, username string) error {
	const query = `
		INSERT INTO defusers (user_id, username, solves, strikes, updated_at)
		VALUES ($1, $2, 1, 0, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET solves = defusers.solves + 1, username = $2, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, userID, username); err != nil {
		return fmt.Errorf("failed to record solve: %w", err)
	}
	return nil
}

// AddStrike increments a user's strike tally, creating the row if needed.
func (r *LeaderboardRepository) AddStrike(ctx context.Context, userID int64, username string) error {
	const query = `
		INSERT INTO defusers (user_id, username, solves, strikes, updated_at)
		VALUES ($1, $2, 0, 1, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET strikes = defusers.strikes + 1, username = $2, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, userID, username); err != nil {
		return fmt.Errorf("failed to record strike: %w", err)
	}
	return nil
}

// AddBombEnd records a session outcome in the global totals row.
func (r *LeaderboardRepository) AddBombEnd(ctx context.Context, detonated bool) error {
	column := "defused"
	if detonated {
		column = "detonated"
	}
	query := fmt.Sprintf(`
		INSERT INTO bomb_totals (id, %s) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET %s = bomb_totals.%s + 1
	`, column, column, column)
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to record bomb end: %w", err)
	}
	return nil
}

// Top returns the best defusers ordered by solves, strikes breaking ties in
// favor of fewer strikes.
func (r *LeaderboardRepository) Top(ctx context.Context, limit int) ([]model.DefuserStats, error) {
	const query = `
		SELECT user_id, username, solves, strikes, updated_at
		FROM defusers
		ORDER BY solves DESC, strikes ASC, updated_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var stats []model.DefuserStats
	for rows.Next() {
		var s model.DefuserStats
		if err := rows.Scan(&s.UserID, &s.Username, &s.Solves, &s.Strikes, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
	}
	return stats, nil
}

// Totals returns the global defused/detonated counters.
func (r *LeaderboardRepository) Totals(ctx context.Context) (model.BombTotals, error) {
	const query = `SELECT defused, detonated FROM bomb_totals WHERE id = 1`

	var totals model.BombTotals
	err := r.pool.QueryRow(ctx, query).Scan(&totals.Defused, &totals.Detonated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BombTotals{}, nil
		}
		return model.BombTotals{}, fmt.Errorf("failed to query bomb totals: %w", err)
	}
	return totals, nil
}
