// Package config loads server settings from an optional TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Scryfall ScryfallConfig `toml:"scryfall"`
	Cache    CacheConfig    `toml:"cache"`
	Sessions SessionsConfig `toml:"sessions"`
	Backfill BackfillConfig `toml:"backfill"`
}

type ServerConfig struct {
	Port               string   `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	FrontendDistPath   string   `toml:"frontend_dist_path"`
}

type DatabaseConfig struct {
	Path string `toml:"path"` // SQLite file
}

// ScryfallConfig tunes the card data source client.
type ScryfallConfig struct {
	BaseURL         string `toml:"base_url"`
	UserAgent       string `toml:"user_agent"`
	RequestInterval string `toml:"request_interval"` // e.g. "100ms"
	Timeout         string `toml:"timeout"`          // e.g. "10s"
}

type CacheConfig struct {
	Size int `toml:"size"` // Card records kept in memory
}

type SessionsConfig struct {
	MaxOpen int    `toml:"max_open"` // Decks with a live editor
	TTL     string `toml:"ttl"`      // Idle time before a session is dropped
}

type BackfillConfig struct {
	Enabled   bool   `toml:"enabled"`
	Interval  string `toml:"interval"`
	BatchSize int    `toml:"batch_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			CORSAllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Path: "./deckistry.db",
		},
		Scryfall: ScryfallConfig{
			BaseURL:         "https://api.scryfall.com",
			UserAgent:       "Deckistry/1.0",
			RequestInterval: "100ms",
			Timeout:         "10s",
		},
		Cache: CacheConfig{
			Size: 5000,
		},
		Sessions: SessionsConfig{
			MaxOpen: 256,
			TTL:     "30m",
		},
		Backfill: BackfillConfig{
			Enabled:   true,
			Interval:  "1h",
			BatchSize: 50,
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. A missing file or empty path leaves
// the defaults in place.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.Server.CORSAllowedOrigins = splitList(v)
	}
	if v := getenv("FRONTEND_DIST_PATH"); v != "" {
		c.Server.FrontendDistPath = v
	}
	if v := getenv("SCRYFALL_BASE_URL"); v != "" {
		c.Scryfall.BaseURL = v
	}
	if v := getenv("CARD_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CARD_CACHE_SIZE %q: %w", v, err)
		}
		c.Cache.Size = n
	}
	if v := getenv("IMAGE_BACKFILL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid IMAGE_BACKFILL_ENABLED %q: %w", v, err)
		}
		c.Backfill.Enabled = enabled
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server port cannot be empty")
	}
	if c.Database.Path == "" {
		return errors.New("database path cannot be empty")
	}

	durations := map[string]string{
		"scryfall request interval": c.Scryfall.RequestInterval,
		"scryfall timeout":          c.Scryfall.Timeout,
		"session TTL":               c.Sessions.TTL,
		"backfill interval":         c.Backfill.Interval,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %s", name, value)
		}
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache size must be positive: %d", c.Cache.Size)
	}
	if c.Sessions.MaxOpen <= 0 {
		return fmt.Errorf("max open sessions must be positive: %d", c.Sessions.MaxOpen)
	}
	if c.Backfill.BatchSize <= 0 {
		return fmt.Errorf("backfill batch size must be positive: %d", c.Backfill.BatchSize)
	}
	return nil
}

// mustDuration is only used after Validate has accepted the value
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// RequestInterval is the minimum gap between two Scryfall requests
func (c *Config) RequestInterval() time.Duration {
	return mustDuration(c.Scryfall.RequestInterval)
}

func (c *Config) ScryfallTimeout() time.Duration {
	return mustDuration(c.Scryfall.Timeout)
}

func (c *Config) SessionTTL() time.Duration {
	return mustDuration(c.Sessions.TTL)
}

func (c *Config) BackfillInterval() time.Duration {
	return mustDuration(c.Backfill.Interval)
}
