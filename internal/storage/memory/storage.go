package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	stats   map[statsKey]*model.PlayerStats
	matches []model.MatchRecord // newest last
}

type statsKey struct {
	userID   model.UserID
	gameType model.GameType
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		stats: make(map[statsKey]*model.PlayerStats),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Match history operations

func (s *Storage) RecordMatch(ctx context.Context, rec *model.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, *rec)
	return nil
}

func (s *Storage) RecentMatches(ctx context.Context, userID model.UserID, limit int) ([]model.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.MatchRecord{}
	for i := len(s.matches) - 1; i >= 0; i-- {
		rec := s.matches[i]
		if rec.Player1ID != userID && rec.Player2ID != userID {
			continue
		}
		result = append(result, rec)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Stats operations

func (s *Storage) UpsertStats(ctx context.Context, update storage.StatsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statsKey{userID: update.UserID, gameType: update.GameType}
	st, ok := s.stats[key]
	if !ok {
		st = &model.PlayerStats{UserID: update.UserID, GameType: update.GameType}
		s.stats[key] = st
	}
	st.Apply(update.Outcome, update.RoundsWon, update.RoundsLost)
	st.UpdatedAt = update.At
	return nil
}

func (s *Storage) GetStats(ctx context.Context, userID model.UserID, gameType model.GameType) (*model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[statsKey{userID: userID, gameType: gameType}]
	if !ok {
		return nil, model.ErrStatsNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Storage) ListStats(ctx context.Context, userID model.UserID) ([]model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.PlayerStats{}
	for key, st := range s.stats {
		if key.userID == userID {
			result = append(result, *st)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].GameType < result[j].GameType
	})
	return result, nil
}

// Leaderboard operations

func (s *Storage) Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []model.LeaderboardEntry{}
	for key, st := range s.stats {
		if key.gameType == gameType {
			entries = append(entries, model.EntryFromStats(*st))
		}
	}
	return storage.Rank(entries, limit), nil
}

func (s *Storage) LeaderboardAll(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Sum each user's rows across game types
	byUser := make(map[model.UserID]*model.LeaderboardEntry)
	for key, st := range s.stats {
		e, ok := byUser[key.userID]
		if !ok {
			e = &model.LeaderboardEntry{UserID: key.userID}
			byUser[key.userID] = e
		}
		e.Points += st.Points
		e.Wins += st.Wins
		e.Losses += st.Losses
		e.Draws += st.Draws
		e.GamesPlayed += st.GamesPlayed
	}

	entries := make([]model.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	return storage.Rank(entries, limit), nil
}

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}
