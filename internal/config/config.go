package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

// AppConfig is the server configuration read from DUEL_* environment variables.
type AppConfig struct {
	ListenAddr   string        `env:"DUEL_LISTEN_ADDR" envDefault:":7878"`
	MoveTimeout  time.Duration `env:"DUEL_MOVE_TIMEOUT" envDefault:"60s"`
	MovePace     time.Duration `env:"DUEL_MOVE_PACE" envDefault:"1s"`
	JoinTimeout  time.Duration `env:"DUEL_JOIN_TIMEOUT" envDefault:"30s"`
	Seed         int64         `env:"DUEL_SEED" envDefault:"0"`
	MaxGames     int           `env:"DUEL_MAX_GAMES" envDefault:"200"`
	SpectateAddr string        `env:"DUEL_SPECTATE_ADDR" envDefault:":7879"`
	StatusAddr   string        `env:"DUEL_STATUS_ADDR" envDefault:":7880"`
	RedisURL     string        `env:"REDIS_URL"`
	SnapshotDir  string        `env:"DUEL_SNAPSHOT_DIR"`
	MessagesDir  string        `env:"DUEL_MESSAGES_DIR"`
	BoardConsole bool          `env:"DUEL_BOARD_CONSOLE" envDefault:"true"`
}

// Load parses the environment and validates the result.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.SpectateAddr = strings.TrimSpace(c.SpectateAddr)
	c.StatusAddr = strings.TrimSpace(c.StatusAddr)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.SnapshotDir = strings.TrimSpace(c.SnapshotDir)
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)
}

// Validate checks values env tags cannot express.
func (c *AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("DUEL_LISTEN_ADDR is required")
	}
	if c.MoveTimeout <= 0 {
		return errors.New("DUEL_MOVE_TIMEOUT must be positive")
	}
	if c.MovePace < 0 {
		return errors.New("DUEL_MOVE_PACE must not be negative")
	}
	if c.JoinTimeout <= 0 {
		return errors.New("DUEL_JOIN_TIMEOUT must be positive")
	}
	if c.MaxGames <= 0 {
		return errors.New("DUEL_MAX_GAMES must be positive")
	}
	if c.RedisURL != "" {
		if _, err := redis.ParseURL(c.RedisURL); err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
	}
	return nil
}

// RedisOptions returns nil when no redis feed is configured.
func (c *AppConfig) RedisOptions() *redis.Options {
	if c.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil
	}
	return opt
}

// SeedValue returns the configured seed or, when zero, one derived from the clock.
func (c *AppConfig) SeedValue(now time.Time) int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return now.UnixNano()
}
