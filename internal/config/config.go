// Package config provides configuration management for the chat platform.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the full server configuration: the auth HTTP gateway, the
// messaging TCP listener, and their shared backing services.
type Config struct {
	LogLevel string       `toml:"log_level"`
	HTTP     HTTPConfig   `toml:"http"`
	Socket   SocketConfig `toml:"socket"`
	DB       DBConfig     `toml:"db"`
	Redis    RedisConfig  `toml:"redis"`
	Auth     AuthConfig   `toml:"auth"`
	Timeouts TimeoutsConfig `toml:"timeouts"`
	Limits   LimitsConfig `toml:"limits"`
	Metrics  MetricsConfig `toml:"metrics"`
}

// HTTPConfig holds settings for the auth HTTP gateway.
type HTTPConfig struct {
	Address string `toml:"address"`
}

// SocketConfig holds settings for the messaging TCP listener.
type SocketConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Address returns the host:port string for the messaging listener.
func (c SocketConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DBConfig holds database connection settings. DSN takes precedence; the
// individual fields are assembled into a DSN when it is empty.
type DBConfig struct {
	DSN      string `toml:"dsn"`
	Server   string `toml:"server"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// RedisConfig holds settings for the presence pub/sub channel.
// An empty address disables publishing; presence then stays purely local.
type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// AuthConfig holds token and password-hashing secrets.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	// Pepper is concatenated with passwords before hashing.
	Pepper string `toml:"pepper"`
	// RequireToken makes the messaging handshake demand a valid bearer
	// token; the handshake identity then overrides frame sender fields.
	RequireToken bool `toml:"require_token"`
}

// TimeoutsConfig defines timeout durations as duration strings.
type TimeoutsConfig struct {
	Idle string `toml:"idle"`
}

// LimitsConfig defines resource limits for the messaging listener.
type LimitsConfig struct {
	MaxConnections int `toml:"max_connections"`
	// MaxFrameBytes bounds a single inbound frame; oversize frames
	// disconnect the client.
	MaxFrameBytes int `toml:"max_frame_bytes"`
}

// MetricsConfig holds configuration for Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Address: ":8000",
		},
		Socket: SocketConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Redis: RedisConfig{
			Address: "127.0.0.1:6379",
		},
		Timeouts: TimeoutsConfig{
			Idle: "30m",
		},
		Limits: LimitsConfig{
			MaxConnections: 100,
			MaxFrameBytes:  4096,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9102",
			Path:    "/metrics",
		},
	}
}

// Validate checks that the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http address is required")
	}

	if c.Socket.Host == "" {
		return errors.New("socket host is required")
	}

	if c.Socket.Port <= 0 || c.Socket.Port > 65535 {
		return fmt.Errorf("invalid socket port %d", c.Socket.Port)
	}

	if c.DB.DSN == "" && c.DB.Database == "" {
		return errors.New("database connection is required (dsn or server/database/username/password)")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}

	if c.Auth.Pepper == "" {
		return errors.New("password pepper is required")
	}

	if c.Limits.MaxConnections <= 0 {
		return errors.New("max_connections must be positive")
	}

	if c.Limits.MaxFrameBytes <= 0 {
		return errors.New("max_frame_bytes must be positive")
	}

	if c.Timeouts.Idle != "" {
		if _, err := time.ParseDuration(c.Timeouts.Idle); err != nil {
			return fmt.Errorf("invalid idle timeout: %w", err)
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return errors.New("metrics address is required when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}

	return nil
}

// IdleTimeout returns the idle timeout as a time.Duration.
// Returns 30 minutes if not configured or invalid.
func (c *TimeoutsConfig) IdleTimeout() time.Duration {
	if c.Idle == "" {
		return 30 * time.Minute
	}
	d, err := time.ParseDuration(c.Idle)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}
