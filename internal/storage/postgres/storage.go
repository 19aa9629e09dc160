package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/storage"
)

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to PostgreSQL, applying migrations first if configured
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	logger = logger.With(slog.String("component", "postgres"))

	if cfg.Migrate {
		migrator, err := NewMigrator(cfg.URL, logger)
		if err != nil {
			return nil, err
		}
		upErr := migrator.Up()
		if err := migrator.Close(); err != nil {
			logger.Warn("failed to close migrator", slog.String("error", err.Error()))
		}
		if upErr != nil {
			return nil, upErr
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{pool: pool, logger: logger}, nil
}

// Close closes the connection pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Match history operations

func (s *Storage) RecordMatch(ctx context.Context, rec *model.MatchRecord) error {
	const query = `
		INSERT INTO matches (game_type, player1_id, player2_id, winner_id, score1, score2, duration_seconds, walkover, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var winner *string
	if rec.WinnerID != nil {
		w := string(*rec.WinnerID)
		winner = &w
	}

	_, err := s.pool.Exec(ctx, query,
		string(rec.GameType),
		string(rec.Player1ID),
		string(rec.Player2ID),
		winner, // NULL for a draw
		rec.Score1,
		rec.Score2,
		rec.DurationSeconds,
		rec.Walkover,
		rec.PlayedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *Storage) RecentMatches(ctx context.Context, userID model.UserID, limit int) ([]model.MatchRecord, error) {
	const query = `
		SELECT game_type, player1_id, player2_id, winner_id, score1, score2, duration_seconds, walkover, played_at
		FROM matches
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY played_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, string(userID), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.MatchRecord, error) {
		var rec model.MatchRecord
		var gameType, p1, p2 string
		var winner *string
		err := row.Scan(&gameType, &p1, &p2, &winner, &rec.Score1, &rec.Score2, &rec.DurationSeconds, &rec.Walkover, &rec.PlayedAt)
		if err != nil {
			return rec, err
		}
		rec.GameType = model.GameType(gameType)
		rec.Player1ID = model.UserID(p1)
		rec.Player2ID = model.UserID(p2)
		if winner != nil {
			w := model.UserID(*winner)
			rec.WinnerID = &w
		}
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan matches: %w", err)
	}
	return matches, nil
}

// Stats operations

func (s *Storage) UpsertStats(ctx context.Context, update storage.StatsUpdate) error {
	const query = `
		INSERT INTO player_stats (user_id, game_type, games_played, wins, losses, draws, rounds_won, rounds_lost, points, updated_at)
		VALUES ($1, $2, 1, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, game_type) DO UPDATE SET
			games_played = player_stats.games_played + 1,
			wins         = player_stats.wins + EXCLUDED.wins,
			losses       = player_stats.losses + EXCLUDED.losses,
			draws        = player_stats.draws + EXCLUDED.draws,
			rounds_won   = player_stats.rounds_won + EXCLUDED.rounds_won,
			rounds_lost  = player_stats.rounds_lost + EXCLUDED.rounds_lost,
			points       = player_stats.points + EXCLUDED.points,
			updated_at   = EXCLUDED.updated_at
	`
	var wins, losses, draws int
	switch update.Outcome {
	case model.OutcomeWon:
		wins = 1
	case model.OutcomeLost:
		losses = 1
	case model.OutcomeDrawn:
		draws = 1
	}

	_, err := s.pool.Exec(ctx, query,
		string(update.UserID),
		string(update.GameType),
		wins,
		losses,
		draws,
		update.RoundsWon,
		update.RoundsLost,
		update.Outcome.Points(),
		update.At,
	)
	if err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}
	return nil
}

const statsColumns = `user_id, game_type, games_played, wins, losses, draws, rounds_won, rounds_lost, points, updated_at`

func (s *Storage) GetStats(ctx context.Context, userID model.UserID, gameType model.GameType) (*model.PlayerStats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats WHERE user_id = $1 AND game_type = $2`

	rows, err := s.pool.Query(ctx, query, string(userID), string(gameType))
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	st, err := pgx.CollectExactlyOneRow(rows, scanStats)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrStatsNotFound
		}
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	return &st, nil
}

func (s *Storage) ListStats(ctx context.Context, userID model.UserID) ([]model.PlayerStats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats WHERE user_id = $1 ORDER BY game_type`

	rows, err := s.pool.Query(ctx, query, string(userID))
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	stats, err := pgx.CollectRows(rows, scanStats)
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	return stats, nil
}

// Leaderboard operations

func (s *Storage) Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.LeaderboardEntry, error) {
	const query = `
		SELECT user_id, points, wins, losses, draws, games_played
		FROM player_stats
		WHERE game_type = $1
		ORDER BY points DESC, wins DESC, user_id ASC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, string(gameType), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return collectEntries(rows)
}

func (s *Storage) LeaderboardAll(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	const query = `
		SELECT user_id, SUM(points)::int, SUM(wins)::int, SUM(losses)::int, SUM(draws)::int, SUM(games_played)::int
		FROM player_stats
		GROUP BY user_id
		ORDER BY 2 DESC, 3 DESC, user_id ASC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]model.LeaderboardEntry, error) {
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LeaderboardEntry, error) {
		var e model.LeaderboardEntry
		var userID string
		err := row.Scan(&userID, &e.Points, &e.Wins, &e.Losses, &e.Draws, &e.GamesPlayed)
		e.UserID = model.UserID(userID)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan leaderboard: %w", err)
	}
	// Rows arrive ordered; this only numbers them
	return storage.Rank(entries, 0), nil
}

func scanStats(row pgx.CollectableRow) (model.PlayerStats, error) {
	var st model.PlayerStats
	var userID, gameType string
	err := row.Scan(&userID, &gameType, &st.GamesPlayed, &st.Wins, &st.Losses, &st.Draws,
		&st.RoundsWon, &st.RoundsLost, &st.Points, &st.UpdatedAt)
	st.UserID = model.UserID(userID)
	st.GameType = model.GameType(gameType)
	return st, err
}

// sqlLimit maps a non-positive limit to no limit
func sqlLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
