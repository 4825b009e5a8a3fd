package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// onlineUsersKey is the Redis set of currently online usernames.
const onlineUsersKey = "online_users"

// publishTimeout bounds each Redis call so a slow or dead broker cannot
// stall connection handling.
const publishTimeout = 500 * time.Millisecond

// RedisPublisher announces presence changes over Redis: a PUBLISH on the
// channel named after the user with payload "joined" or "left", and
// membership updates to the online_users set. All operations are
// best-effort; failures are logged and dropped.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisPublisher creates a publisher using the given client.
func NewRedisPublisher(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

// Joined publishes "joined" on the user's channel and adds the user to the
// online set.
func (p *RedisPublisher) Joined(ctx context.Context, username string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, username, "joined").Err(); err != nil {
		p.logger.Warn("presence publish failed",
			slog.String("username", username),
			slog.String("event", "joined"),
			slog.String("error", err.Error()))
	}
	if err := p.client.SAdd(ctx, onlineUsersKey, username).Err(); err != nil {
		p.logger.Warn("online set update failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
	}
}

// Left publishes "left" on the user's channel and removes the user from
// the online set.
func (p *RedisPublisher) Left(ctx context.Context, username string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, username, "left").Err(); err != nil {
		p.logger.Warn("presence publish failed",
			slog.String("username", username),
			slog.String("event", "left"),
			slog.String("error", err.Error()))
	}
	if err := p.client.SRem(ctx, onlineUsersKey, username).Err(); err != nil {
		p.logger.Warn("online set update failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
	}
}
