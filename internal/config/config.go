package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the auction house server.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            uint16        `envconfig:"SERVER_PORT" default:"3000"`
	OrderLifetime   time.Duration `envconfig:"ORDER_LIFETIME" default:"5m"` // sell orders expire this long after placement
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"1s"` // expiration sweeper cadence
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DBConfig holds database-related configuration.
// The path ":memory:" selects an ephemeral in-memory store.
type DBConfig struct {
	Path string `envconfig:"DB_PATH" default:"auction.db"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
