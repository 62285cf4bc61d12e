// Package config holds the settings a poolserver process is wired up
// from: where its data files live, how big each shard is, and which
// optional admin-surface features are turned on.
package config

import "time"

// Config holds poolserver configuration settings.
type Config struct {
	Host string // Admin HTTP host address
	Port int    // Admin HTTP port

	DataDir    string // Directory holding one data file per shard
	PoolSize   int    // Frames per shard instance. Default: 1000 (~4MB per shard)
	ShardCount int    // Number of parallel pool shards. Default: 1 (no sharding)

	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout
	IdleTimeout  time.Duration // HTTP idle timeout

	EnableCORS     bool     // Enable CORS middleware on the admin API
	AllowedOrigins []string // CORS allowed origins

	EnableGraphQL bool // Enable the read-only GraphQL introspection endpoint
	EnableEvents  bool // Enable the /ws/events live event stream

	AdminTokenHash string // PBKDF2 hash of the admin bearer token; empty disables auth
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           8080,
		DataDir:        "./data",
		PoolSize:       1000,
		ShardCount:     1,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		EnableGraphQL:  false,
		EnableEvents:   false,
	}
}
