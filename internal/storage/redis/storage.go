package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/storage"
)

// scoreScale packs points and wins into one sorted-set score
const scoreScale = 1_000_000

// Hash fields for a stats row
const (
	fieldUserID      = "user_id"
	fieldGameType    = "game_type"
	fieldGamesPlayed = "games_played"
	fieldWins        = "wins"
	fieldLosses      = "losses"
	fieldDraws       = "draws"
	fieldRoundsWon   = "rounds_won"
	fieldRoundsLost  = "rounds_lost"
	fieldPoints      = "points"
	fieldUpdatedAt   = "updated_at"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Match history operations

func (s *Storage) RecordMatch(ctx context.Context, rec *model.MatchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	// Global list plus one list per player, each capped
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, matchesKey(), data)
	pipe.LTrim(ctx, matchesKey(), 0, s.cfg.MatchHistoryLimit-1)
	for _, userID := range []model.UserID{rec.Player1ID, rec.Player2ID} {
		pipe.LPush(ctx, userMatchesIndexKey(userID), data)
		pipe.LTrim(ctx, userMatchesIndexKey(userID), 0, s.cfg.UserMatchHistoryLimit-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) RecentMatches(ctx context.Context, userID model.UserID, limit int) ([]model.MatchRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	items, err := s.client.LRange(ctx, userMatchesIndexKey(userID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]model.MatchRecord, 0, len(items))
	for _, item := range items {
		var rec model.MatchRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	return matches, nil
}

// Stats operations

func (s *Storage) UpsertStats(ctx context.Context, update storage.StatsUpdate) error {
	var wins, losses, draws int64
	switch update.Outcome {
	case model.OutcomeWon:
		wins = 1
	case model.OutcomeLost:
		losses = 1
	case model.OutcomeDrawn:
		draws = 1
	}
	points := int64(update.Outcome.Points())
	updatedAt := update.At.UTC().Format(time.RFC3339Nano)

	// Use a transaction so the per-game row, the total row and both leaderboards move together
	pipe := s.client.TxPipeline()
	for _, key := range []string{statsKey(update.UserID, update.GameType), totalStatsKey(update.UserID)} {
		pipe.HIncrBy(ctx, key, fieldGamesPlayed, 1)
		pipe.HIncrBy(ctx, key, fieldWins, wins)
		pipe.HIncrBy(ctx, key, fieldLosses, losses)
		pipe.HIncrBy(ctx, key, fieldDraws, draws)
		pipe.HIncrBy(ctx, key, fieldRoundsWon, int64(update.RoundsWon))
		pipe.HIncrBy(ctx, key, fieldRoundsLost, int64(update.RoundsLost))
		pipe.HIncrBy(ctx, key, fieldPoints, points)
		pipe.HSet(ctx, key, fieldUserID, string(update.UserID), fieldUpdatedAt, updatedAt)
	}
	pipe.HSet(ctx, statsKey(update.UserID, update.GameType), fieldGameType, string(update.GameType))
	pipe.SAdd(ctx, userGamesIndexKey(update.UserID), string(update.GameType))

	score := float64(points*scoreScale + wins)
	pipe.ZIncrBy(ctx, leaderboardKey(update.GameType), score, string(update.UserID))
	pipe.ZIncrBy(ctx, totalLeaderboardKey(), score, string(update.UserID))

	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) GetStats(ctx context.Context, userID model.UserID, gameType model.GameType) (*model.PlayerStats, error) {
	fields, err := s.client.HGetAll(ctx, statsKey(userID, gameType)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrStatsNotFound
	}
	st, err := statsFromHash(fields)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Storage) ListStats(ctx context.Context, userID model.UserID) ([]model.PlayerStats, error) {
	gameTypes, err := s.client.SMembers(ctx, userGamesIndexKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(gameTypes)

	keys := make([]string, len(gameTypes))
	for i, gt := range gameTypes {
		keys[i] = statsKey(userID, model.GameType(gt))
	}
	rows, err := s.loadStats(ctx, keys)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Leaderboard operations

func (s *Storage) Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.LeaderboardEntry, error) {
	members, err := s.rankedMembers(ctx, leaderboardKey(gameType), limit)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = statsKey(model.UserID(m), gameType)
	}
	return s.loadEntries(ctx, keys, limit)
}

func (s *Storage) LeaderboardAll(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	members, err := s.rankedMembers(ctx, totalLeaderboardKey(), limit)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = totalStatsKey(model.UserID(m))
	}
	return s.loadEntries(ctx, keys, limit)
}

// rankedMembers returns the top members of a leaderboard ZSET, plus every
// member tied with the last one so the user id tie-break stays exact
func (s *Storage) rankedMembers(ctx context.Context, key string, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	top, err := s.client.ZRevRangeWithScores(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	members := make([]string, 0, len(top))
	seen := make(map[string]bool, len(top))
	for _, z := range top {
		m := fmt.Sprint(z.Member)
		members = append(members, m)
		seen[m] = true
	}
	if limit <= 0 || len(top) < limit {
		return members, nil
	}

	cutoff := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
	tied, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: cutoff, Max: cutoff}).Result()
	if err != nil {
		return nil, err
	}
	for _, m := range tied {
		if !seen[m] {
			members = append(members, m)
		}
	}
	return members, nil
}

func (s *Storage) loadEntries(ctx context.Context, keys []string, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := s.loadStats(ctx, keys)
	if err != nil {
		return nil, err
	}
	entries := make([]model.LeaderboardEntry, len(rows))
	for i, st := range rows {
		entries[i] = model.EntryFromStats(st)
	}
	return storage.Rank(entries, limit), nil
}

// loadStats fetches stats hashes in one round trip, skipping missing keys
func (s *Storage) loadStats(ctx context.Context, keys []string) ([]model.PlayerStats, error) {
	if len(keys) == 0 {
		return []model.PlayerStats{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	rows := make([]model.PlayerStats, 0, len(keys))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		st, err := statsFromHash(fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, st)
	}
	return rows, nil
}

func statsFromHash(fields map[string]string) (model.PlayerStats, error) {
	st := model.PlayerStats{
		UserID:   model.UserID(fields[fieldUserID]),
		GameType: model.GameType(fields[fieldGameType]),
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{fieldGamesPlayed, &st.GamesPlayed},
		{fieldWins, &st.Wins},
		{fieldLosses, &st.Losses},
		{fieldDraws, &st.Draws},
		{fieldRoundsWon, &st.RoundsWon},
		{fieldRoundsLost, &st.RoundsLost},
		{fieldPoints, &st.Points},
	}
	for _, f := range ints {
		raw, ok := fields[f.field]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return model.PlayerStats{}, fmt.Errorf("parse %s: %w", f.field, err)
		}
		*f.dst = v
	}

	if raw, ok := fields[fieldUpdatedAt]; ok {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return model.PlayerStats{}, fmt.Errorf("parse %s: %w", fieldUpdatedAt, err)
		}
		st.UpdatedAt = at
	}
	return st, nil
}
