package service

import (
	"context"
	"fmt"
	"strings"

	"ktane-bot/internal/bomb"
	"ktane-bot/internal/repository"
)

// LeaderboardService records per-defuser statistics and formats the
// leaderboard for display. It implements bomb.SolveRecorder.
type LeaderboardService struct {
	repo *repository.LeaderboardRepository
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(repo *repository.LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{repo: repo}
}

// RecordSolve credits a solved module to the defuser.
func (s *LeaderboardService) RecordSolve(ctx context.Context, user bomb.User) error {
	return s.repo.AddSolve(ctx, user.ID, user.Name)
}

// RecordStrike charges a strike to the defuser.
func (s *LeaderboardService) RecordStrike(ctx context.Context, user bomb.User) error {
	return s.repo.AddStrike(ctx, user.ID, user.Name)
}

// RecordBombEnd counts a finished bomb toward the global totals.
func (s *LeaderboardService) RecordBombEnd(ctx context.Context, detonated bool) error {
	return s.repo.AddBombEnd(ctx, detonated)
}

// FormatTop renders the top defusers and the global bomb totals as a
// single message.
func (s *LeaderboardService) FormatTop(ctx context.Context, limit int) (string, error) {
	stats, err := s.repo.Top(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("failed to load leaderboard: %w", err)
	}
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load bomb totals: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("**Top defusers**\n")
	if len(stats) == 0 {
		sb.WriteString("Nobody has solved a module yet.\n")
	}
	for i, st := range stats {
		name := st.Username
		if name == "" {
			name = fmt.Sprintf("user %d", st.UserID)
		}
		fmt.Fprintf(&sb, "%d. %s - %d solved, %d strikes\n", i+1, name, st.Solves, st.Strikes)
	}
	fmt.Fprintf(&sb, "\nBombs defused: %d, detonated: %d", totals.Defused, totals.Detonated)
	return sb.String(), nil
}
