package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/blitzarena/internal/dependencies/clock"
	"github.com/mcoot/blitzarena/internal/dependencies/random"
	"github.com/mcoot/blitzarena/internal/events"
	"github.com/mcoot/blitzarena/internal/services/identity"
	"github.com/mcoot/blitzarena/internal/services/lobby"
	"github.com/mcoot/blitzarena/internal/services/rules"
	"github.com/mcoot/blitzarena/internal/services/stats"
	"github.com/mcoot/blitzarena/internal/storage"
	"github.com/mcoot/blitzarena/internal/storage/memory"
	pgstorage "github.com/mcoot/blitzarena/internal/storage/postgres"
	redisstorage "github.com/mcoot/blitzarena/internal/storage/redis"
	"github.com/mcoot/blitzarena/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage   storage.Storage
	Publisher events.Publisher

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Engines         rules.Engines
	LobbyController *lobby.Controller
	StatsService    *stats.Service
	IdentityService *identity.Service

	// Transport, nil when the controller is wired to a test transport
	Hub       *ws.Hub
	WebSocket *ws.Server
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds PostgreSQL settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
	// NATSConfig enables match event publishing (optional)
	NATSConfig *events.NATSConfig
	// LobbyConfig holds session timing (optional)
	// If zero value, defaults to lobby.DefaultConfig()
	LobbyConfig lobby.Config
	// StatsConfig holds stats persistence settings (optional)
	StatsConfig stats.Config
	// WebSocketConfig holds upgrade settings (optional)
	WebSocketConfig ws.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSConfig != nil {
		natsPublisher, err := events.NewNATSPublisher(*cfg.NATSConfig, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publisher = natsPublisher
	}

	lobbyCfg := cfg.LobbyConfig
	if lobbyCfg.Room.TurnDuration == 0 {
		lobbyCfg = lobby.DefaultConfig()
	}

	hub := ws.NewHub(logger)

	app := newWithDependencies(dependencies{
		store:     store,
		publisher: publisher,
		clock:     clock.New(),
		random:    random.New(),
		transport: hub,
		lobby:     lobbyCfg,
		stats:     cfg.StatsConfig,
		logger:    logger,
	})
	app.Hub = hub
	app.WebSocket = ws.NewServer(hub, app.LobbyController, cfg.WebSocketConfig, logger)

	return app, nil
}

func newStorage(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		return redisStore, nil
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(ctx, *cfg.PostgresConfig, logger)
		if err != nil {
			return nil, err
		}
		return pgStore, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}
}

// dependencies are the swappable inputs to the wiring
type dependencies struct {
	store     storage.Storage
	publisher events.Publisher
	clock     clock.Clock
	random    random.Random
	transport lobby.Transport
	lobby     lobby.Config
	stats     stats.Config
	logger    *slog.Logger
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies) *App {
	engines := rules.NewEngines(deps.random)
	statsService := stats.New(deps.store, deps.publisher, deps.stats, deps.logger)
	lobbyController := lobby.NewController(deps.lobby, engines, deps.transport, statsService, deps.clock, deps.logger)
	identityService := identity.New(deps.clock, deps.random)

	return &App{
		Storage:         deps.store,
		Publisher:       deps.publisher,
		Clock:           deps.clock,
		Random:          deps.random,
		Engines:         engines,
		LobbyController: lobbyController,
		StatsService:    statsService,
		IdentityService: identityService,
	}
}

// Close disconnects every client and waits for their disconnects to be handled.
// It then stops the lobby so no timer can record another match, waits for
// pending stats writes and releases backends.
func (a *App) Close() error {
	if a.Hub != nil {
		a.Hub.Shutdown()
	}
	a.LobbyController.Shutdown()
	a.StatsService.Wait()

	return errors.Join(a.Publisher.Close(), a.Storage.Close())
}
