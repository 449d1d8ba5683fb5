package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/worldgate/internal/api"
	"github.com/mcoot/worldgate/internal/config"
	"github.com/mcoot/worldgate/internal/factory"
	"github.com/mcoot/worldgate/internal/server"
	"github.com/mcoot/worldgate/internal/transport/ws"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "worldgate",
		Short:        "Run the worldgate login and admission server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("WORLDGATE_CONFIG"), "Path to a TOML config file (env: WORLDGATE_CONFIG)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	settings := cfg.WorldSettings()
	factoryCfg := factory.Config{
		AuthConfig: cfg.AuthServiceConfig(),
		ServerConfig: server.Config{
			TickRate:  cfg.Admission.TickRate.Duration,
			Admission: cfg.AdmissionEngineConfig(),
		},
		WorldSettings: &settings,
		LedgerDir:     cfg.Ledger.DataDir,
		Logger:        logger,
		StorageType:   cfg.Storage.Type,
	}
	if cfg.Storage.Type == config.StorageRedis {
		redisCfg := cfg.RedisStorageConfig()
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	wsCfg := ws.DefaultConfig()
	wsCfg.SendBuffer = cfg.Transport.SendBuffer
	wsCfg.WriteTimeout = cfg.Transport.WriteTimeout.Duration
	wsCfg.ReadLimit = cfg.Transport.ReadLimit

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Clock:       app.Clock,
		AuthService: app.AuthService,
		Server:      app.Server,
		Metrics:     app.Metrics,
		WSConfig:    wsCfg,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.Listen
	httpServer := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Tick loop
	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		app.Server.Run(ctx)
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info("server started",
		slog.String("addr", httpServer.Addr()),
		slog.String("auth_mode", string(app.AuthService.Mode())),
		slog.String("storage", cfg.Storage.Type))

	// Wait for shutdown or error
	var serveErr error
	select {
	case serveErr = <-errCh:
		cancel()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Sessions are told the server is going away before their sockets close
	<-tickDone
	if err := httpServer.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := app.Ledger.Save(); err != nil {
		logger.Error("failed to save ledger", slog.String("error", err.Error()))
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("server stopped")
	return nil
}
