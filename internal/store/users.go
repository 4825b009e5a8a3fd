package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// User store errors.
var (
	// ErrUserExists is returned when signup hits the username uniqueness
	// constraint.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when a username has no row.
	ErrUserNotFound = errors.New("user not found")

	// ErrKeyNotFound is returned when a user has no stored public key.
	ErrKeyNotFound = errors.New("public key not found")
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// CreateUser inserts a new user with the given password hash.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2)`,
		username, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// PasswordHash returns the stored password hash for the username.
func (s *Store) PasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT password FROM users WHERE username = $1`,
		username).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("fetching password hash: %w", err)
	}
	return hash, nil
}

// UserExists reports whether the username is registered.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM users WHERE username = $1`,
		username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking user: %w", err)
	}
	return count > 0, nil
}

// likeEscaper neutralizes LIKE/ILIKE metacharacters so a search term
// matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike returns term with LIKE wildcards escaped.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// SearchUsers returns up to ten usernames containing the term,
// case-insensitively, in ascending username order. The term is matched
// literally; wildcard characters in it have no special meaning.
func (s *Store) SearchUsers(ctx context.Context, term string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username FROM users WHERE username ILIKE $1 ORDER BY username LIMIT 10`,
		"%"+escapeLike(term)+"%")
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		usernames = append(usernames, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return usernames, nil
}

// StorePublicKey saves the user's public key. Returns ErrUserNotFound when
// the username is not registered.
func (s *Store) StorePublicKey(ctx context.Context, username, publicKey string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET public_key = $1 WHERE username = $2`,
		publicKey, username)
	if err != nil {
		return fmt.Errorf("storing public key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PublicKey returns the user's stored public key, or ErrKeyNotFound when
// the user is unknown or has not uploaded one.
func (s *Store) PublicKey(ctx context.Context, username string) (string, error) {
	var key *string
	err := s.pool.QueryRow(ctx,
		`SELECT public_key FROM users WHERE username = $1`,
		username).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("fetching public key: %w", err)
	}
	if key == nil || *key == "" {
		return "", ErrKeyNotFound
	}
	return *key, nil
}
