package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Flags holds command-line flag values.
type Flags struct {
	ConfigPath     string
	LogLevel       string
	HTTPAddress    string
	SocketHost     string
	SocketPort     int
	DSN            string
	MaxConnections int
	RequireToken   bool
}

// ParseFlags parses command-line flags and returns a Flags struct.
func ParseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "./chatd.toml", "Path to configuration file")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&f.HTTPAddress, "http-addr", "", "Auth HTTP gateway listen address")
	flag.StringVar(&f.SocketHost, "socket-host", "", "Messaging listener host")
	flag.IntVar(&f.SocketPort, "socket-port", 0, "Messaging listener port")
	flag.StringVar(&f.DSN, "db-dsn", "", "Database connection string")
	flag.IntVar(&f.MaxConnections, "max-connections", 0, "Maximum concurrent messaging connections")
	flag.BoolVar(&f.RequireToken, "require-token", false, "Require a bearer token in the messaging handshake")

	flag.Parse()
	return f
}

// Load parses a TOML configuration file and returns the Config.
// If the file does not exist, returns the default configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg Config
	if err := toml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	return mergeConfig(cfg, fileCfg), nil
}

// ApplyEnv merges environment variables into the config. The variable names
// match the original deployment scripts: DB_PATH carries a full connection
// string, SERVER/DATABASE/USERNAME/PASSWORD carry the pieces of one.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DB.DSN = v
	}

	if v := os.Getenv("SERVER"); v != "" {
		cfg.DB.Server = v
	}
	if v := os.Getenv("DATABASE"); v != "" {
		cfg.DB.Database = v
	}
	if v := os.Getenv("USERNAME"); v != "" {
		cfg.DB.Username = v
	}
	if v := os.Getenv("PASSWORD"); v != "" {
		cfg.DB.Password = v
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.Auth.Pepper = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Address = ":" + v
		}
	}

	if v := os.Getenv("SOCKET_HOST"); v != "" {
		cfg.Socket.Host = v
	}
	if v := os.Getenv("SOCKET_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Socket.Port = p
		}
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Address = v
	}

	if strings.EqualFold(os.Getenv("VERBOSE"), "true") {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// ApplyFlags merges command-line flag values into the config.
// Non-zero/non-empty flag values override config file and env values.
func ApplyFlags(cfg Config, f *Flags) Config {
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}

	if f.HTTPAddress != "" {
		cfg.HTTP.Address = f.HTTPAddress
	}

	if f.SocketHost != "" {
		cfg.Socket.Host = f.SocketHost
	}

	if f.SocketPort > 0 {
		cfg.Socket.Port = f.SocketPort
	}

	if f.DSN != "" {
		cfg.DB.DSN = f.DSN
	}

	if f.MaxConnections > 0 {
		cfg.Limits.MaxConnections = f.MaxConnections
	}

	if f.RequireToken {
		cfg.Auth.RequireToken = true
	}

	return cfg
}

// LoadWithFlags loads configuration from the path specified in flags, then
// applies environment and flag overrides, in that order of precedence.
func LoadWithFlags(f *Flags) (Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	cfg = ApplyEnv(cfg)
	return ApplyFlags(cfg, f), nil
}

// mergeConfig merges non-zero values from src into dst.
func mergeConfig(dst, src Config) Config {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}

	if src.HTTP.Address != "" {
		dst.HTTP.Address = src.HTTP.Address
	}

	if src.Socket.Host != "" {
		dst.Socket.Host = src.Socket.Host
	}
	if src.Socket.Port > 0 {
		dst.Socket.Port = src.Socket.Port
	}

	if src.DB.DSN != "" {
		dst.DB.DSN = src.DB.DSN
	}
	if src.DB.Server != "" {
		dst.DB.Server = src.DB.Server
	}
	if src.DB.Database != "" {
		dst.DB.Database = src.DB.Database
	}
	if src.DB.Username != "" {
		dst.DB.Username = src.DB.Username
	}
	if src.DB.Password != "" {
		dst.DB.Password = src.DB.Password
	}

	if src.Redis.Address != "" {
		dst.Redis.Address = src.Redis.Address
	}
	if src.Redis.Password != "" {
		dst.Redis.Password = src.Redis.Password
	}
	if src.Redis.DB != 0 {
		dst.Redis.DB = src.Redis.DB
	}

	if src.Auth.JWTSecret != "" {
		dst.Auth.JWTSecret = src.Auth.JWTSecret
	}
	if src.Auth.Pepper != "" {
		dst.Auth.Pepper = src.Auth.Pepper
	}
	if src.Auth.RequireToken {
		dst.Auth.RequireToken = true
	}

	if src.Timeouts.Idle != "" {
		dst.Timeouts.Idle = src.Timeouts.Idle
	}

	if src.Limits.MaxConnections > 0 {
		dst.Limits.MaxConnections = src.Limits.MaxConnections
	}
	if src.Limits.MaxFrameBytes > 0 {
		dst.Limits.MaxFrameBytes = src.Limits.MaxFrameBytes
	}

	if src.Metrics.Enabled {
		dst.Metrics.Enabled = src.Metrics.Enabled
	}
	if src.Metrics.Address != "" {
		dst.Metrics.Address = src.Metrics.Address
	}
	if src.Metrics.Path != "" {
		dst.Metrics.Path = src.Metrics.Path
	}

	return dst
}
