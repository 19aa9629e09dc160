package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/blitzarena/internal/api"
	"github.com/mcoot/blitzarena/internal/config"
	"github.com/mcoot/blitzarena/internal/events"
	"github.com/mcoot/blitzarena/internal/factory"
	pgstorage "github.com/mcoot/blitzarena/internal/storage/postgres"
	redisstorage "github.com/mcoot/blitzarena/internal/storage/redis"
	"github.com/mcoot/blitzarena/internal/web/ws"
)

func main() {
	configPath := flag.String("config", os.Getenv("BLITZ_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create API router
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		LobbyController: app.LobbyController,
		StatsService:    app.StatsService,
		IdentityService: app.IdentityService,
		WebSocket:       app.WebSocket,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	server := api.NewServer(mux, serverConfig, logger)
	server.OnShutdown(app.Hub.Shutdown)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("events", cfg.Events.NATSURL != ""))

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	if err := app.Close(); err != nil {
		logger.Error("failed to release resources", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	cancel()
	os.Exit(exitCode)
}

// factoryConfig translates the loaded configuration into factory settings
func factoryConfig(cfg config.Config, logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:          logger,
		StorageType:     cfg.Storage.Type,
		LobbyConfig:     cfg.Lobby(),
		WebSocketConfig: ws.Config{AllowedOrigins: cfg.Server.AllowedOrigins},
	}

	switch cfg.Storage.Type {
	case factory.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		fc.RedisConfig = &redisCfg
	case factory.StorageTypePostgres:
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.URL = cfg.Storage.DatabaseURL
		pgCfg.Migrate = cfg.Storage.Migrate
		fc.PostgresConfig = &pgCfg
	}

	if cfg.Events.NATSURL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.Events.NATSURL
		natsCfg.Subject = cfg.Events.Subject
		fc.NATSConfig = &natsCfg
	}

	return fc
}
