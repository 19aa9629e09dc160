// Package config loads server settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/blitzarena/internal/events"
	"github.com/mcoot/blitzarena/internal/services/lobby"
	"github.com/mcoot/blitzarena/internal/services/registry"
	"github.com/mcoot/blitzarena/internal/services/rematch"
	"github.com/mcoot/blitzarena/internal/services/room"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config is the complete server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Events   EventsConfig   `yaml:"events"`
	Liveness LivenessConfig `yaml:"liveness"`
	Match    MatchConfig    `yaml:"match"`
	Rematch  RematchConfig  `yaml:"rematch"`
}

// ServerConfig holds listener settings
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig selects log level and output format
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects the stats backend
type StorageConfig struct {
	Type        string `yaml:"type"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	Migrate     bool   `yaml:"migrate"`
}

// EventsConfig enables match event publishing when NATSURL is set
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// LivenessConfig holds heartbeat and reconnection settings
type LivenessConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `yaml:"heartbeat_timeout"`
	ReconnectWindow   time.Duration `yaml:"reconnect_window"`
}

// MatchConfig holds match pacing
type MatchConfig struct {
	TurnDuration  time.Duration `yaml:"turn_duration"`
	RoundDelay    time.Duration `yaml:"round_delay"`
	TeardownDelay time.Duration `yaml:"teardown_delay"`
	Rounds        int           `yaml:"rounds"`
	WinsNeeded    int           `yaml:"wins_needed"`
}

// RematchConfig holds rematch negotiation settings
type RematchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Grace   time.Duration `yaml:"grace"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	reg := registry.DefaultConfig()
	rm := room.DefaultConfig()
	rem := rematch.DefaultConfig()

	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Type:    StorageMemory,
			Migrate: true,
		},
		Events: EventsConfig{
			Subject: events.SubjectMatchCompleted,
		},
		Liveness: LivenessConfig{
			HeartbeatInterval: reg.HeartbeatInterval,
			HeartbeatTimeout:  reg.HeartbeatTimeout,
			ReconnectWindow:   reg.ReconnectWindow,
		},
		Match: MatchConfig{
			TurnDuration:  rm.TurnDuration,
			RoundDelay:    rm.RoundDelay,
			TeardownDelay: rm.TeardownDelay,
			Rounds:        rm.Rounds,
			WinsNeeded:    rm.WinsNeeded,
		},
		Rematch: RematchConfig{
			Timeout: rem.Timeout,
			Grace:   rem.Grace,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables looked up through getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
	}
	if v := getenv("NATS_URL"); v != "" {
		c.Events.NATSURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for redis storage"))
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"liveness.heartbeat_interval", c.Liveness.HeartbeatInterval},
		{"liveness.heartbeat_timeout", c.Liveness.HeartbeatTimeout},
		{"liveness.reconnect_window", c.Liveness.ReconnectWindow},
		{"match.turn_duration", c.Match.TurnDuration},
		{"match.round_delay", c.Match.RoundDelay},
		{"match.teardown_delay", c.Match.TeardownDelay},
		{"rematch.timeout", c.Rematch.Timeout},
		{"rematch.grace", c.Rematch.Grace},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}

	if c.Match.Rounds <= 0 {
		errs = append(errs, errors.New("match.rounds must be positive"))
	}
	if c.Match.WinsNeeded <= 0 || c.Match.WinsNeeded > c.Match.Rounds {
		errs = append(errs, fmt.Errorf("match.wins_needed must be between 1 and %d", c.Match.Rounds))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Lobby returns the session orchestrator settings
func (c Config) Lobby() lobby.Config {
	return lobby.Config{
		Registry: registry.Config{
			HeartbeatInterval: c.Liveness.HeartbeatInterval,
			HeartbeatTimeout:  c.Liveness.HeartbeatTimeout,
			ReconnectWindow:   c.Liveness.ReconnectWindow,
		},
		Room: room.Config{
			TurnDuration:  c.Match.TurnDuration,
			RoundDelay:    c.Match.RoundDelay,
			TeardownDelay: c.Match.TeardownDelay,
			Rounds:        c.Match.Rounds,
			WinsNeeded:    c.Match.WinsNeeded,
		},
		Rematch: rematch.Config{
			Timeout: c.Rematch.Timeout,
			Grace:   c.Rematch.Grace,
		},
	}
}

// NewLogger builds the process logger described by the log settings
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Log.Level)}
	if c.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

