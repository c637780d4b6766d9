package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTP      HTTP      `yaml:"http"`
	Storage   Storage   `yaml:"storage"`
	Redis     Redis     `yaml:"redis"`
	Retention Retention `yaml:"retention"`
	Bot       Bot       `yaml:"bot"`
}

type HTTP struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:""`
	Port            int           `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read-timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write-timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

type Storage struct {
	Type string `yaml:"type" env:"STORAGE_TYPE" env-default:"memory"`
}

type Redis struct {
	URL          string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379"`
	PoolSize     int    `yaml:"pool-size" env:"REDIS_POOL_SIZE" env-default:"10"`
	MinIdleConns int    `yaml:"min-idle-conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	MaxRetries   int    `yaml:"max-retries" env:"REDIS_MAX_RETRIES" env-default:"100"`
}

type Retention struct {
	Waiting         time.Duration `yaml:"waiting" env:"RETENTION_WAITING" env-default:"30m"`
	InProgress      time.Duration `yaml:"in-progress" env:"RETENTION_IN_PROGRESS" env-default:"24h"`
	Finished        time.Duration `yaml:"finished" env:"RETENTION_FINISHED" env-default:"10m"`
	JanitorInterval time.Duration `yaml:"janitor-interval" env:"JANITOR_INTERVAL" env-default:"1m"`
}

type Bot struct {
	SearchDepth int `yaml:"search-depth" env:"BOT_SEARCH_DEPTH" env-default:"4"`
}

// Load reads configuration from the YAML file at path, overridden by the
// environment. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(cfg)
	} else {
		err = cleanenv.ReadConfig(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad - load configuration or panic.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks values that cleanenv cannot
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.Retention.JanitorInterval <= 0 {
		return fmt.Errorf("janitor interval must be positive")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Usage returns a description of every environment variable
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}
