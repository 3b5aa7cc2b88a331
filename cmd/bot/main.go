// Package main is the entry point for the bomb defusal bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ktane-bot/internal/bot"
	"ktane-bot/internal/config"
	"ktane-bot/internal/modules"
	"ktane-bot/internal/paste"
	"ktane-bot/internal/pkg/db"
	"ktane-bot/internal/repository"
	"ktane-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the module catalogue
	registry, err := modules.BuildRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build module registry")
	}
	log.Info().
		Int("vanilla", len(registry.VanillaIdents())).
		Int("modded", len(registry.ModdedIdents())).
		Msg("Module registry sealed")

	// Persistence is optional; without it the bot runs with no leaderboard.
	var leaderboard *service.LeaderboardService
	if cfg.Database.Enabled() {
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		if err := runMigrations(ctx, dbPool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		repo := repository.NewLeaderboardRepository(dbPool.Pool)
		leaderboard = service.NewLeaderboardService(repo)
	} else {
		log.Info().Msg("No database configured; leaderboard disabled")
	}

	archiver := paste.New(cfg.Archive.URL, cfg.Archive.Timeout)

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:      cfg,
		Registry:    registry,
		Archiver:    archiver,
		Leaderboard: leaderboard,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Exit on a signal or once shutdown mode has drained the last bomb.
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-telegramBot.Manager().Done():
		log.Info().Msg("Shutdown mode complete, all bombs ended")
	}

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create defusers table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS defusers (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			solves BIGINT NOT NULL DEFAULT 0,
			strikes BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_defusers_solves ON defusers(solves DESC, strikes ASC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: defusers table created")

	// Migration 2: Create bomb totals table (single row)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bomb_totals (
			id INT PRIMARY KEY,
			defused BIGINT NOT NULL DEFAULT 0,
			detonated BIGINT NOT NULL DEFAULT 0
		);
		INSERT INTO bomb_totals (id, defused, detonated)
		VALUES (1, 0, 0)
		ON CONFLICT (id) DO NOTHING;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: bomb_totals table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
