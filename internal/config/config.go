// Package config loads server configuration from a TOML file layered over
// defaults, then applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/services/admission"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/services/world"
	redisstorage "github.com/mcoot/worldgate/internal/storage/redis"
)

// Environment variables that override the file
const (
	EnvStorage  = "WORLDGATE_STORAGE"
	EnvRedisURL = "REDIS_URL"
	EnvListen   = "WORLDGATE_LISTEN"
	EnvDataDir  = "WORLDGATE_DATA_DIR"
	EnvAuthMode = "WORLDGATE_AUTH_MODE"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Duration is a time.Duration written as a string such as "250ms" or "24h"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete server configuration
type Config struct {
	Listen    string          `toml:"listen"`
	LogLevel  string          `toml:"log_level"`
	Storage   StorageConfig   `toml:"storage"`
	Auth      AuthConfig      `toml:"auth"`
	Admission AdmissionConfig `toml:"admission"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Transport TransportConfig `toml:"transport"`
	World     WorldConfig     `toml:"world"`
}

type StorageConfig struct {
	Type  string      `toml:"type"`
	Redis RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	URL       string `toml:"url"`
	PoolSize  int    `toml:"pool_size"`
	KeyPrefix string `toml:"key_prefix"`
}

type AuthConfig struct {
	Mode          string   `toml:"mode"`
	TokenTTL      Duration `toml:"token_ttl"`
	VerifyTimeout Duration `toml:"verify_timeout"`
}

type AdmissionConfig struct {
	MaxPlayers        int      `toml:"max_players"`
	Workers           int      `toml:"workers"`
	TickRate          Duration `toml:"tick_rate"`
	DefaultBattleMode string   `toml:"default_battle_mode"`
}

type LedgerConfig struct {
	DataDir string `toml:"data_dir"`
}

type TransportConfig struct {
	SendBuffer   int      `toml:"send_buffer"`
	WriteTimeout Duration `toml:"write_timeout"`
	ReadLimit    int64    `toml:"read_limit"`
}

type WorldConfig struct {
	MaxGroupSize        uint32                       `toml:"max_group_size"`
	ClientTimeout       Duration                     `toml:"client_timeout"`
	DayCycleCoefficient float64                      `toml:"day_cycle_coefficient"`
	StartTimeOfDay      float64                      `toml:"start_time_of_day"`
	Size                [2]uint32                    `toml:"size"`
	SeaLevel            float32                      `toml:"sea_level"`
	Sites               []string                     `toml:"sites"`
	DefaultLocale       string                       `toml:"default_locale"`
	Descriptions        map[string]world.Description `toml:"descriptions"`
	Plugins             []string                     `toml:"plugins"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	authDefaults := auth.DefaultConfig()
	admissionDefaults := admission.DefaultConfig()
	redisDefaults := redisstorage.DefaultConfig()
	worldDefaults := world.DefaultSettings()

	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Storage: StorageConfig{
			Type: StorageMemory,
			Redis: RedisConfig{
				URL:       redisDefaults.URL,
				PoolSize:  redisDefaults.PoolSize,
				KeyPrefix: redisDefaults.KeyPrefix,
			},
		},
		Auth: AuthConfig{
			Mode:          string(authDefaults.Mode),
			TokenTTL:      Duration{authDefaults.TokenTTL},
			VerifyTimeout: Duration{authDefaults.VerifyTimeout},
		},
		Admission: AdmissionConfig{
			MaxPlayers:        admissionDefaults.MaxPlayers,
			Workers:           admissionDefaults.Workers,
			TickRate:          Duration{50 * time.Millisecond},
			DefaultBattleMode: string(admissionDefaults.DefaultBattleMode),
		},
		Ledger: LedgerConfig{DataDir: "data"},
		Transport: TransportConfig{
			SendBuffer:   256,
			WriteTimeout: Duration{10 * time.Second},
			ReadLimit:    64 * 1024,
		},
		World: WorldConfig{
			MaxGroupSize:        worldDefaults.MaxGroupSize,
			ClientTimeout:       Duration{worldDefaults.ClientTimeout},
			DayCycleCoefficient: worldDefaults.DayCycleCoefficient,
			StartTimeOfDay:      worldDefaults.StartTimeOfDay,
			Size:                worldDefaults.WorldSize,
			SeaLevel:            worldDefaults.SeaLevel,
			DefaultLocale:       worldDefaults.DefaultLocale,
			Descriptions:        worldDefaults.Descriptions,
		},
	}
}

// Load reads path (if not empty) over the defaults and applies environment
// overrides from the process environment
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup
func LoadWithEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if v := getenv(EnvStorage); v != "" {
		cfg.Storage.Type = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		cfg.Storage.Redis.URL = v
	}
	if v := getenv(EnvListen); v != "" {
		cfg.Listen = v
	}
	if v := getenv(EnvDataDir); v != "" {
		cfg.Ledger.DataDir = v
	}
	if v := getenv(EnvAuthMode); v != "" {
		cfg.Auth.Mode = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Type {
	case StorageMemory, StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.type must be %q or %q, got %q", StorageMemory, StorageRedis, c.Storage.Type))
	}
	switch auth.Mode(c.Auth.Mode) {
	case auth.ModeInsecure, auth.ModeToken:
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be %q or %q, got %q", auth.ModeInsecure, auth.ModeToken, c.Auth.Mode))
	}
	switch model.BattleMode(c.Admission.DefaultBattleMode) {
	case model.BattleModePvP, model.BattleModePvE:
	default:
		errs = append(errs, fmt.Errorf("admission.default_battle_mode must be %q or %q", model.BattleModePvP, model.BattleModePvE))
	}
	if c.Admission.MaxPlayers < 0 {
		errs = append(errs, errors.New("admission.max_players must not be negative"))
	}
	if c.Admission.TickRate.Duration <= 0 {
		errs = append(errs, errors.New("admission.tick_rate must be positive"))
	}
	if c.Transport.SendBuffer < 1 {
		errs = append(errs, errors.New("transport.send_buffer must be at least 1"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// AuthServiceConfig converts to the auth service configuration
func (c Config) AuthServiceConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.Mode = auth.Mode(c.Auth.Mode)
	cfg.TokenTTL = c.Auth.TokenTTL.Duration
	cfg.VerifyTimeout = c.Auth.VerifyTimeout.Duration
	return cfg
}

// AdmissionEngineConfig converts to the admission engine configuration
func (c Config) AdmissionEngineConfig() admission.Config {
	return admission.Config{
		MaxPlayers:        c.Admission.MaxPlayers,
		Workers:           c.Admission.Workers,
		DefaultBattleMode: model.BattleMode(c.Admission.DefaultBattleMode),
	}
}

// RedisStorageConfig converts to the Redis store configuration
func (c Config) RedisStorageConfig() redisstorage.Config {
	cfg := redisstorage.DefaultConfig()
	cfg.URL = c.Storage.Redis.URL
	if c.Storage.Redis.PoolSize > 0 {
		cfg.PoolSize = c.Storage.Redis.PoolSize
	}
	if c.Storage.Redis.KeyPrefix != "" {
		cfg.KeyPrefix = c.Storage.Redis.KeyPrefix
	}
	return cfg
}

// WorldSettings converts to the world sync settings
func (c Config) WorldSettings() world.Settings {
	s := world.DefaultSettings()
	s.MaxGroupSize = c.World.MaxGroupSize
	s.ClientTimeout = c.World.ClientTimeout.Duration
	s.DayCycleCoefficient = c.World.DayCycleCoefficient
	s.StartTimeOfDay = c.World.StartTimeOfDay
	s.WorldSize = c.World.Size
	s.SeaLevel = c.World.SeaLevel
	s.Sites = c.World.Sites
	s.DefaultLocale = c.World.DefaultLocale
	s.Descriptions = c.World.Descriptions
	s.Plugins = c.World.Plugins
	return s
}
