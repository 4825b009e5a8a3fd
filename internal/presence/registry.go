// Package presence tracks which users are online and announces joins and
// leaves on a pub/sub side channel.
package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/infodancer/chatd/internal/server"
)

// Publisher emits presence events. Implementations must be best-effort:
// a failed publish is logged by the implementation and never surfaces to
// the registry's callers.
type Publisher interface {
	Joined(ctx context.Context, username string)
	Left(ctx context.Context, username string)
}

// NoopPublisher discards presence events. Used when no pub/sub backend is
// configured.
type NoopPublisher struct{}

// Joined is a no-op.
func (NoopPublisher) Joined(ctx context.Context, username string) {}

// Left is a no-op.
func (NoopPublisher) Left(ctx context.Context, username string) {}

// Registry is the in-memory directory of online users. Both maps are
// guarded by a single mutex; no I/O happens while it is held. Presence
// events are published after the mutex is released, so a slow pub/sub
// backend can never stall Lookup and with it message routing.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*server.Connection
	byConn map[*server.Connection]string

	pub    Publisher
	logger *slog.Logger
}

// NewRegistry creates an empty registry publishing to pub.
func NewRegistry(pub Publisher, logger *slog.Logger) *Registry {
	return &Registry{
		byName: make(map[string]*server.Connection),
		byConn: make(map[*server.Connection]string),
		pub:    pub,
		logger: logger,
	}
}

// Bind associates the username with the connection. If the username is
// already bound, the previous connection is removed and returned so the
// caller can close it; its reader then observes the close and exits. The
// registry never holds two entries for one username.
func (r *Registry) Bind(ctx context.Context, username string, conn *server.Connection) *server.Connection {
	r.mu.Lock()
	evicted := r.byName[username]
	if evicted != nil {
		delete(r.byConn, evicted)
	}
	r.byName[username] = conn
	r.byConn[conn] = username
	r.mu.Unlock()

	if evicted != nil {
		r.pub.Left(ctx, username)
	}
	r.pub.Joined(ctx, username)

	r.logger.Debug("user bound", slog.String("username", username))
	return evicted
}

// Unbind removes the connection's binding if it is still current. Keyed by
// connection identity so a stale reader finishing after an eviction cannot
// remove the replacement binding. Idempotent.
func (r *Registry) Unbind(ctx context.Context, conn *server.Connection) (string, bool) {
	r.mu.Lock()
	username, ok := r.byConn[conn]
	if !ok {
		r.mu.Unlock()
		return "", false
	}

	delete(r.byConn, conn)
	if r.byName[username] == conn {
		delete(r.byName, username)
	}
	r.mu.Unlock()

	r.pub.Left(ctx, username)

	r.logger.Debug("user unbound", slog.String("username", username))
	return username, true
}

// Lookup returns the connection currently bound to the username.
func (r *Registry) Lookup(username string) (*server.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byName[username]
	return conn, ok
}

// Snapshot returns the online usernames, sorted.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
