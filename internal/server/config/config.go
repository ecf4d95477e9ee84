// Package config holds the server's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the root server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"http-server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Logger    LoggerConfig    `yaml:"logger"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Path            string        `yaml:"path"`
	FeedLimit       int           `yaml:"feed_limit"`
	LedgerRetention time.Duration `yaml:"ledger_retention"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
}

type RateLimitConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Storage: StorageConfig{
			Path:            "driftsync.db",
			FeedLimit:       500,
			LedgerRetention: 7 * 24 * time.Hour,
			JanitorInterval: time.Hour,
		},
		Auth: AuthConfig{
			AccessTokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Rate:   300,
			Window: time.Minute,
		},
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
	}
}

// Load reads a YAML config from path. A missing file yields Default().
func Load(path string, logger *slog.Logger) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", "path", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LoggerConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "warn":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
