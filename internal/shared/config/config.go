package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	TelegramBotToken string  `koanf:"telegram_bot_token"`
	TelegramAPIURL   string  `koanf:"telegram_api_url"`
	AllowedUsers     []int64 `koanf:"-"`

	APIBaseURL  string `koanf:"api_base_url"`
	APIClientID string `koanf:"api_client_id"`
	APIToken    string `koanf:"api_token"`

	HTTPPort  string `koanf:"http_port"`
	PublicURL string `koanf:"public_url"`

	StoragePath       string                   `koanf:"storage_path"`
	FavouritesBackend domain.FavouritesBackend `koanf:"-"`
	RedisURL          string                   `koanf:"redis_url"`
	DatabaseURL       string                   `koanf:"database_url"`

	PollInterval       time.Duration `koanf:"poll_interval"`
	BatchSize          int           `koanf:"batch_size"`
	BatchTimeout       time.Duration `koanf:"batch_timeout"`
	DirectoryInterval  time.Duration `koanf:"directory_interval"`
	RegistryCapacity   int           `koanf:"registry_capacity"`
	NotificationBuffer int           `koanf:"notification_buffer"`
	FeedHistory        int           `koanf:"feed_history"`
	SearchCacheTTL     time.Duration `koanf:"search_cache_ttl"`

	LogLevel string        `koanf:"log_level"`
	AppEnv   domain.AppEnv `koanf:"-"`
}

// TelegramEnabled reports whether a bot token was configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

var defaults = map[string]any{
	"telegram_api_url":    "https://api.telegram.org",
	"api_base_url":        "https://api.twitch.tv/helix",
	"http_port":           "8080",
	"storage_path":        "./data",
	"favourites_backend":  "file",
	"poll_interval":       "90s",
	"batch_size":          100,
	"batch_timeout":       "20s",
	"directory_interval":  "10m",
	"registry_capacity":   500,
	"notification_buffer": 64,
	"feed_history":        50,
	"search_cache_ttl":    "1m",
	"log_level":           "info",
	"app_env":             "production",
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	// Use lo.Find to find the first existing config file
	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	for key, value := range defaults {
		if !k.Exists(key) || k.String(key) == "" {
			k.Set(key, value)
		}
	}
	if !k.Exists("public_url") {
		k.Set("public_url", "http://localhost:"+k.String("http_port"))
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Parse AllowedUsers from comma-separated string if it's a string
	if allowedUsers := k.Get("allowed_users"); allowedUsers != nil {
		switch v := allowedUsers.(type) {
		case string:
			cfg.AllowedUsers = ParseAllowedUsers(v)
		case []interface{}:
			cfg.AllowedUsers = lo.FilterMap(v, func(item interface{}, _ int) (int64, bool) {
				switch val := item.(type) {
				case int64:
					return val, true
				case int:
					return int64(val), true
				case float64:
					return int64(val), true
				default:
					return 0, false
				}
			})
		}
	}

	// Parse AppEnv from string if needed
	if appEnv, err := domain.ParseAppEnv(k.String("app_env")); err == nil {
		cfg.AppEnv = appEnv
	} else {
		cfg.AppEnv = domain.AppEnvProduction
	}

	backend, err := domain.ParseFavouritesBackend(k.String("favourites_backend"))
	if err != nil {
		return nil, oops.With("favourites_backend", k.String("favourites_backend")).Wrap(err)
	}
	cfg.FavouritesBackend = backend

	// Validate required fields
	switch {
	case backend == domain.FavouritesBackendRedis && cfg.RedisURL == "":
		return nil, oops.With("key", "redis_url").Wrap(errors.ErrMissingSetting)
	case backend == domain.FavouritesBackendPostgres && cfg.DatabaseURL == "":
		return nil, oops.With("key", "database_url").Wrap(errors.ErrMissingSetting)
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	return &cfg, nil
}

// ParseAllowedUsers parses comma-separated user IDs string into []int64
func ParseAllowedUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}
