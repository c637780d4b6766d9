package redis

import (
	"github.com/akumm2k/reversi/internal/storage"
)

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Retention drives both key TTLs and PurgeExpired
	Retention storage.Retention

	// MaxRetries bounds optimistic transaction retries in UpdateGame
	MaxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		Retention:    storage.DefaultRetention(),
		MaxRetries:   100,
	}
}
