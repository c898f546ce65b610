// Package config loads the service configuration from built-in defaults, an
// optional YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/lealre/community-backend/internal/logx"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Auth     AuthConfig     `koanf:"auth"`
	Ratings  RatingsConfig  `koanf:"ratings"`
	Presence PresenceConfig `koanf:"presence"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Logging  logx.Config    `koanf:"logging"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	EnsureIndexes  bool          `koanf:"ensure_indexes"`
}

type AuthConfig struct {
	TokenSecret string `koanf:"token_secret"`
}

type RatingsConfig struct {
	// ConsumerName keys the change feed checkpoint.
	ConsumerName     string        `koanf:"consumer_name"`
	ReconcileWorkers int           `koanf:"reconcile_workers"`
	HandleTimeout    time.Duration `koanf:"handle_timeout"`
	BreakerFailures  uint32        `koanf:"breaker_failures"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

type PresenceConfig struct {
	// Backend is "memory" or "redis".
	Backend       string `koanf:"backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

type RealtimeConfig struct {
	SendBuffer     int           `koanf:"send_buffer"`
	EventTimeout   time.Duration `koanf:"event_timeout"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Mongo: MongoConfig{
			URI:            "",
			Database:       "community",
			ConnectTimeout: 10 * time.Second,
			EnsureIndexes:  true,
		},
		Ratings: RatingsConfig{
			ConsumerName:     "rating-aggregator",
			ReconcileWorkers: 4,
			HandleTimeout:    10 * time.Second,
			BreakerFailures:  5,
			BreakerTimeout:   30 * time.Second,
		},
		Presence: PresenceConfig{
			Backend:   "memory",
			RedisAddr: "127.0.0.1:6379",
		},
		Realtime: RealtimeConfig{
			SendBuffer:     64,
			EventTimeout:   5 * time.Second,
			AllowedOrigins: []string{},
		},
		Logging: logx.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration. Environment variables win over the config
// file, which wins over the defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaSeparated(k, "realtime.allowed_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGODB_URI is required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("MONGODB_DB is required"))
	}
	if c.Auth.TokenSecret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET is required"))
	}
	switch c.Presence.Backend {
	case "memory":
	case "redis":
		if c.Presence.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when PRESENCE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown presence backend %q", c.Presence.Backend))
	}
	if c.Ratings.ReconcileWorkers < 1 {
		errs = append(errs, errors.New("RATINGS_RECONCILE_WORKERS must be at least 1"))
	}
	return errors.Join(errs...)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings keeps the variable names the service has always used.
var envMappings = map[string]string{
	"mongodb_uri":    "mongo.uri",
	"mongodb_db":     "mongo.database",
	"token_secret":   "auth.token_secret",
	"http_addr":      "server.addr",
	"log_level":      "logging.level",
	"log_format":     "logging.format",
	"redis_addr":     "presence.redis_addr",
	"redis_password": "presence.redis_password",
	"redis_db":       "presence.redis_db",
}

var sectionPrefixes = []string{"server_", "mongo_", "ratings_", "presence_", "realtime_", "logging_"}

// envTransformFunc maps an environment variable name to a koanf path.
// Unknown variables map to "" and are ignored.
//
//	MONGODB_URI              -> mongo.uri
//	RATINGS_RECONCILE_WORKERS -> ratings.reconcile_workers
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if path, ok := envMappings[key]; ok {
		return path
	}
	for _, prefix := range sectionPrefixes {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimSuffix(prefix, "_") + "." + strings.TrimPrefix(key, prefix)
		}
	}
	return ""
}

func splitCommaSeparated(k *koanf.Koanf, path string) error {
	strVal, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(strVal, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if err := k.Set(path, parts); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}
