package config

import (
	"testing"
	"time"
)

// validConfig returns a configuration that passes Validate.
func validConfig() Config {
	cfg := Default()
	cfg.DB.DSN = "postgres://localhost/chat"
	cfg.Auth.JWTSecret = "secret"
	cfg.Auth.Pepper = "pepper"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing http address", mutate: func(c *Config) { c.HTTP.Address = "" }, wantErr: true},
		{name: "missing socket host", mutate: func(c *Config) { c.Socket.Host = "" }, wantErr: true},
		{name: "zero socket port", mutate: func(c *Config) { c.Socket.Port = 0 }, wantErr: true},
		{name: "port too large", mutate: func(c *Config) { c.Socket.Port = 70000 }, wantErr: true},
		{name: "no database", mutate: func(c *Config) { c.DB = DBConfig{} }, wantErr: true},
		{name: "db parts without dsn", mutate: func(c *Config) {
			c.DB = DBConfig{Server: "db", Database: "chat"}
		}, wantErr: false},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "missing pepper", mutate: func(c *Config) { c.Auth.Pepper = "" }, wantErr: true},
		{name: "zero max connections", mutate: func(c *Config) { c.Limits.MaxConnections = 0 }, wantErr: true},
		{name: "zero max frame bytes", mutate: func(c *Config) { c.Limits.MaxFrameBytes = 0 }, wantErr: true},
		{name: "bad idle timeout", mutate: func(c *Config) { c.Timeouts.Idle = "soon" }, wantErr: true},
		{name: "metrics enabled without address", mutate: func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Address = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestSocketAddress(t *testing.T) {
	cfg := SocketConfig{Host: "127.0.0.1", Port: 8080}
	if got, want := cfg.Address(), "127.0.0.1:8080"; got != want {
		t.Errorf("Address() = %q, want %q", got, want)
	}
}

func TestIdleTimeout(t *testing.T) {
	tests := []struct {
		idle string
		want time.Duration
	}{
		{idle: "", want: 30 * time.Minute},
		{idle: "5m", want: 5 * time.Minute},
		{idle: "garbage", want: 30 * time.Minute},
	}

	for _, tt := range tests {
		c := TimeoutsConfig{Idle: tt.idle}
		if got := c.IdleTimeout(); got != tt.want {
			t.Errorf("IdleTimeout(%q) = %v, want %v", tt.idle, got, tt.want)
		}
	}
}
