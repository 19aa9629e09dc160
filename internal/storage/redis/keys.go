package redis

import (
	"fmt"

	"github.com/mcoot/blitzarena/internal/model"
)

// Key prefix for all arena data
const keyPrefix = "blitz"

// allGames stands in for the game type on cross-game aggregates
const allGames = "all"

// Key generation functions for each entity type

// statsKey returns the Redis key for a user's stats HASH in one game type
func statsKey(userID model.UserID, gameType model.GameType) string {
	return fmt.Sprintf("%s:stats:%s:%s", keyPrefix, gameType, userID)
}

// totalStatsKey returns the Redis key for a user's stats summed over game types
func totalStatsKey(userID model.UserID) string {
	return fmt.Sprintf("%s:stats:%s:%s", keyPrefix, allGames, userID)
}

// userGamesIndexKey returns the Redis key for the SET of game types a user has played
func userGamesIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:user_games:%s", keyPrefix, userID)
}

// leaderboardKey returns the Redis key for a game type's leaderboard ZSET
func leaderboardKey(gameType model.GameType) string {
	return fmt.Sprintf("%s:leaderboard:%s", keyPrefix, gameType)
}

// totalLeaderboardKey returns the Redis key for the cross-game leaderboard ZSET
func totalLeaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard:%s", keyPrefix, allGames)
}

// matchesKey returns the Redis key for the global match history LIST
func matchesKey() string {
	return fmt.Sprintf("%s:matches", keyPrefix)
}

// userMatchesIndexKey returns the Redis key for a user's match history LIST
func userMatchesIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:user_matches:%s", keyPrefix, userID)
}
