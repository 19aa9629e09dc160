package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func env(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func (s *ConfigSuite) writeFile(content string) string {
	path := filepath.Join(s.T().TempDir(), "blitz.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *ConfigSuite) TestDefaultsMatchComponentDefaults() {
	cfg := Default()
	s.Require().NoError(cfg.Validate())

	lobbyCfg := cfg.Lobby()
	s.Equal(5*time.Second, lobbyCfg.Registry.HeartbeatInterval)
	s.Equal(15*time.Second, lobbyCfg.Registry.HeartbeatTimeout)
	s.Equal(30*time.Second, lobbyCfg.Registry.ReconnectWindow)
	s.Equal(10*time.Second, lobbyCfg.Room.TurnDuration)
	s.Equal(2*time.Second, lobbyCfg.Room.RoundDelay)
	s.Equal(5*time.Second, lobbyCfg.Room.TeardownDelay)
	s.Equal(5, lobbyCfg.Room.Rounds)
	s.Equal(3, lobbyCfg.Room.WinsNeeded)
	s.Equal(30*time.Second, lobbyCfg.Rematch.Timeout)
	s.Equal(time.Second, lobbyCfg.Rematch.Grace)
	s.Equal("0.0.0.0:8080", cfg.Addr())
}

func (s *ConfigSuite) TestLoadWithoutFile() {
	s.T().Setenv("STORAGE_TYPE", "")
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(StorageMemory, cfg.Storage.Type)
}

func (s *ConfigSuite) TestLoadFileOverridesDefaults() {
	s.T().Setenv("PORT", "")
	s.T().Setenv("LOG_LEVEL", "")
	path := s.writeFile(`
server:
  port: 9090
  allowed_origins: ["https://play.example"]
log:
  level: debug
  format: text
match:
  turn_duration: 7s
liveness:
  reconnect_window: 1m
`)

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal(9090, cfg.Server.Port)
	s.Equal([]string{"https://play.example"}, cfg.Server.AllowedOrigins)
	s.Equal("debug", cfg.Log.Level)
	s.Equal(7*time.Second, cfg.Match.TurnDuration)
	s.Equal(time.Minute, cfg.Liveness.ReconnectWindow)
	// untouched keys keep their defaults
	s.Equal(2*time.Second, cfg.Match.RoundDelay)
	s.Equal(5, cfg.Match.Rounds)
}

func (s *ConfigSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.Error(err)
}

func (s *ConfigSuite) TestLoadMalformedFile() {
	path := s.writeFile("server: [not, a, map")

	_, err := Load(path)
	s.ErrorContains(err, "parse config")
}

func (s *ConfigSuite) TestApplyEnv() {
	cfg := Default()

	err := cfg.ApplyEnv(env(map[string]string{
		"PORT":            "3000",
		"STORAGE_TYPE":    "redis",
		"REDIS_URL":       "redis://cache:6379",
		"DATABASE_URL":    "postgres://db/blitz",
		"NATS_URL":        "nats://bus:4222",
		"LOG_LEVEL":       "warn",
		"LOG_FORMAT":      "text",
		"ALLOWED_ORIGINS": "https://a.example, https://b.example,",
	}))
	s.Require().NoError(err)

	s.Equal(3000, cfg.Server.Port)
	s.Equal(StorageRedis, cfg.Storage.Type)
	s.Equal("redis://cache:6379", cfg.Storage.RedisURL)
	s.Equal("postgres://db/blitz", cfg.Storage.DatabaseURL)
	s.Equal("nats://bus:4222", cfg.Events.NATSURL)
	s.Equal("warn", cfg.Log.Level)
	s.Equal("text", cfg.Log.Format)
	s.Equal([]string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	s.NoError(cfg.Validate())
}

func (s *ConfigSuite) TestApplyEnvRejectsBadPort() {
	cfg := Default()

	err := cfg.ApplyEnv(env(map[string]string{"PORT": "eighty"}))
	s.ErrorContains(err, "invalid PORT")
}

func (s *ConfigSuite) TestValidateStorage() {
	cfg := Default()
	cfg.Storage.Type = StorageRedis
	s.ErrorContains(cfg.Validate(), "redis_url")

	cfg.Storage.Type = StoragePostgres
	s.ErrorContains(cfg.Validate(), "database_url")

	cfg.Storage.Type = "sqlite"
	s.ErrorContains(cfg.Validate(), `unknown storage type "sqlite"`)
}

func (s *ConfigSuite) TestValidateDurations() {
	cfg := Default()
	cfg.Match.TurnDuration = 0
	cfg.Rematch.Grace = -time.Second

	err := cfg.Validate()
	s.ErrorContains(err, "match.turn_duration must be positive")
	s.ErrorContains(err, "rematch.grace must be positive")
}

func (s *ConfigSuite) TestValidateRounds() {
	cfg := Default()
	cfg.Match.WinsNeeded = 6

	s.ErrorContains(cfg.Validate(), "match.wins_needed")
}

func (s *ConfigSuite) TestValidateLogFormat() {
	cfg := Default()
	cfg.Log.Format = "xml"

	s.ErrorContains(cfg.Validate(), `unknown log format "xml"`)
}

func (s *ConfigSuite) TestParseLevel() {
	s.Equal(slog.LevelDebug, ParseLevel("DEBUG"))
	s.Equal(slog.LevelWarn, ParseLevel("warning"))
	s.Equal(slog.LevelError, ParseLevel("error"))
	s.Equal(slog.LevelInfo, ParseLevel("nonsense"))
}
