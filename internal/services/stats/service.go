package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/blitzarena/internal/events"
	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/storage"
)

// Leaderboard size bounds
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Config holds configuration for the stats service
type Config struct {
	// WriteTimeout bounds one asynchronous persistence run
	WriteTimeout time.Duration
}

// DefaultConfig returns default stats configuration
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 5 * time.Second,
	}
}

// Service persists finished matches and serves stats reads
type Service struct {
	storage   storage.Storage
	publisher events.Publisher
	cfg       Config
	logger    *slog.Logger

	wg sync.WaitGroup
}

// New creates a new stats service
func New(storage storage.Storage, publisher events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		storage:   storage,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "stats")),
	}
}

// RecordMatchAsync persists a result in the background.
// Failures are logged and never reach the caller.
func (s *Service) RecordMatchAsync(result model.MatchResult) {
	if result.InvolvesGuest() {
		s.logger.Debug("skipping guest match", slog.String("room_id", string(result.RoomID)))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		defer cancel()

		if err := s.RecordMatch(ctx, result); err != nil {
			s.logger.Error("failed to record match",
				slog.String("room_id", string(result.RoomID)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// RecordMatch writes the match history row and both players' stats,
// then publishes a MatchCompleted event
func (s *Service) RecordMatch(ctx context.Context, result model.MatchResult) error {
	if result.InvolvesGuest() {
		return nil
	}

	rec := result.Record()
	if err := s.storage.RecordMatch(ctx, &rec); err != nil {
		return fmt.Errorf("record match: %w", err)
	}

	for seat, player := range result.Players {
		update := storage.StatsUpdate{
			UserID:     player.ID,
			GameType:   result.GameType,
			Outcome:    result.OutcomeFor(seat),
			RoundsWon:  result.Scores[seat],
			RoundsLost: result.Scores[model.Opponent(seat)],
			At:         result.EndedAt,
		}
		if err := s.storage.UpsertStats(ctx, update); err != nil {
			return fmt.Errorf("upsert stats for %s: %w", player.ID, err)
		}
	}

	if err := s.publisher.PublishMatchCompleted(ctx, events.MatchCompletedFrom(result)); err != nil {
		s.logger.Warn("failed to publish match event",
			slog.String("room_id", string(result.RoomID)),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("match recorded",
		slog.String("room_id", string(result.RoomID)),
		slog.String("game_type", string(result.GameType)),
		slog.Bool("walkover", result.Walkover),
	)
	return nil
}

// Wait blocks until every background write has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Leaderboard returns the top players for one game type
func (s *Service) Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.LeaderboardEntry, error) {
	return s.storage.Leaderboard(ctx, gameType, clampLimit(limit))
}

// LeaderboardAll returns the top players summed over every game type
func (s *Service) LeaderboardAll(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.storage.LeaderboardAll(ctx, clampLimit(limit))
}

// PlayerStats returns a user's stats for every game type they have played
func (s *Service) PlayerStats(ctx context.Context, userID model.UserID) ([]model.PlayerStats, error) {
	return s.storage.ListStats(ctx, userID)
}

// GameStats returns a user's stats for one game type, or model.ErrStatsNotFound
func (s *Service) GameStats(ctx context.Context, userID model.UserID, gameType model.GameType) (*model.PlayerStats, error) {
	return s.storage.GetStats(ctx, userID, gameType)
}

// RecentMatches returns a user's most recent matches, newest first
func (s *Service) RecentMatches(ctx context.Context, userID model.UserID, limit int) ([]model.MatchRecord, error) {
	return s.storage.RecentMatches(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
