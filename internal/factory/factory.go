package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/dependencies/random"
	"github.com/mcoot/worldgate/internal/metrics"
	"github.com/mcoot/worldgate/internal/server"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/services/ledger"
	"github.com/mcoot/worldgate/internal/services/world"
	"github.com/mcoot/worldgate/internal/storage"
	"github.com/mcoot/worldgate/internal/storage/memory"
	redisstorage "github.com/mcoot/worldgate/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Metrics     *metrics.Metrics
	AuthService *auth.Service
	Ledger      *ledger.Ledger
	World       *world.Source
	Server      *server.Server
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// ServerConfig holds tick loop and admission configuration (optional)
	// If zero value, defaults to server.DefaultConfig()
	ServerConfig server.Config
	// WorldSettings is the static world state (optional)
	// If nil, defaults to world.DefaultSettings()
	WorldSettings *world.Settings
	// LedgerDir is the directory holding the ban, admin and whitelist files
	// If empty, the ledger is kept in memory only
	LedgerDir string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(clk)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	led := ledger.New("", clk, logger)
	if cfg.LedgerDir != "" {
		loaded, err := ledger.Load(cfg.LedgerDir, clk, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
		led = loaded
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.Mode == "" {
		authCfg = auth.DefaultConfig()
	}

	serverCfg := cfg.ServerConfig
	if serverCfg.TickRate == 0 {
		serverCfg = server.DefaultConfig()
	}

	settings := world.DefaultSettings()
	if cfg.WorldSettings != nil {
		settings = *cfg.WorldSettings
	}

	return newWithDependencies(store, clk, rnd, led, authCfg, serverCfg, settings, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	led *ledger.Ledger,
	authCfg auth.Config,
	serverCfg server.Config,
	settings world.Settings,
	logger *slog.Logger,
) *App {
	// Create services
	m := metrics.New()
	authService := auth.New(store, clk, rnd, authCfg, logger)
	worldSource := world.New(settings, clk, logger)
	srv := server.New(serverCfg, server.Deps{
		Auth:    authService,
		Ledger:  led,
		World:   worldSource,
		Metrics: m,
		Clock:   clk,
	}, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Metrics:     m,
		AuthService: authService,
		Ledger:      led,
		World:       worldSource,
		Server:      srv,
	}
}
