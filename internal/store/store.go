// Package store persists users and messages in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infodancer/chatd/internal/config"
)

// Store wraps a pgx connection pool and exposes the user and message
// queries the gateway and the broker need.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates the users and messages tables, adds columns introduced
// after the first release, and ensures the query indexes exist. All
// statements are idempotent so startup can run them unconditionally.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id SERIAL PRIMARY KEY,
			sender VARCHAR(255) NOT NULL,
			recipient VARCHAR(255) NOT NULL,
			message_content TEXT NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			conversation_id VARCHAR(511) NOT NULL,
			delivered BOOLEAN DEFAULT true
		)`,
		// Additive migrations for databases created before these columns.
		`ALTER TABLE messages ADD COLUMN IF NOT EXISTS delivered BOOLEAN DEFAULT true`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS public_key TEXT`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_id ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_timestamp ON messages(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_recipient_delivered ON messages(recipient, delivered)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}

	s.logger.Debug("database schema initialized")
	return nil
}

// BuildDSN returns the connection string for the configured database.
// An explicit DSN wins; otherwise one is assembled from the parts.
func BuildDSN(cfg config.DBConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	host := cfg.Server
	if host == "" {
		host = "localhost"
	}

	dsn := fmt.Sprintf("host=%s dbname=%s", host, cfg.Database)
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// ConversationID returns the canonical identifier for the conversation
// between a and b: the lexicographically smaller name first, joined by a
// colon. Both orderings of the pair map to the same id.
func ConversationID(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}
