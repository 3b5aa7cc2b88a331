// Package model defines the data models for the defusal bot.
package model

import "time"

// DefuserStats is one user's lifetime tally on the leaderboard.
type DefuserStats struct {
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	Solves    int64     `db:"solves"`
	Strikes   int64     `db:"strikes"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BombTotals aggregates session outcomes across all channels.
type BombTotals struct {
	Defused   int64 `db:"defused"`
	Detonated int64 `db:"detonated"`
}
