package redis

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// History retention, as list lengths
	MatchHistoryLimit     int64
	UserMatchHistoryLimit int64
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                   "redis://localhost:6379",
		PoolSize:              10,
		MinIdleConns:          2,
		MatchHistoryLimit:     1000,
		UserMatchHistoryLimit: 100,
	}
}
