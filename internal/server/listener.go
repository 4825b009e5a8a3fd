package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/infodancer/chatd/internal/logging"
)

// ConnectionHandler processes a single client connection. It runs on the
// connection's own goroutine and returns when the session ends.
type ConnectionHandler func(ctx context.Context, conn *Connection)

// ListenerConfig holds configuration for creating a Listener.
type ListenerConfig struct {
	Address        string
	IdleTimeout    time.Duration
	MaxLineBytes   int
	MaxConnections int
	Logger         *slog.Logger
	Handler        ConnectionHandler
}

// Listener accepts messaging connections and runs a handler goroutine per
// client, bounded by a connection limiter.
type Listener struct {
	cfg     ListenerConfig
	limiter *ConnectionLimiter

	ln net.Listener

	mu    sync.Mutex
	conns map[*Connection]struct{}
	wg    sync.WaitGroup
}

// NewListener creates a new Listener with the given configuration.
func NewListener(cfg ListenerConfig) *Listener {
	return &Listener{
		cfg:     cfg,
		limiter: NewConnectionLimiter(cfg.MaxConnections),
		conns:   make(map[*Connection]struct{}),
	}
}

// Listen binds the listening socket. Must be called before Serve.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.cfg.Address, err)
	}
	l.ln = ln
	return nil
}

// Addr returns the bound address. Only valid after Listen.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until the context is cancelled. On shutdown it
// closes the listening socket and every live connection, which unblocks
// the reader goroutines, then waits for all handlers to return.
func (l *Listener) Serve(ctx context.Context) error {
	logger := l.cfg.Logger

	go func() {
		<-ctx.Done()
		_ = l.ln.Close()

		l.mu.Lock()
		for conn := range l.conns {
			_ = conn.Close()
		}
		l.mu.Unlock()
	}()

	logger.Info("accepting connections", slog.String("address", l.ln.Addr().String()))

	for {
		netConn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			logger.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		if !l.limiter.TryAcquire() {
			logger.Warn("connection limit reached, rejecting client",
				slog.String("remote", netConn.RemoteAddr().String()))
			_ = netConn.Close()
			continue
		}

		conn := NewConnection(netConn, l.cfg.IdleTimeout, l.cfg.MaxLineBytes)

		l.mu.Lock()
		l.conns[conn] = struct{}{}
		l.mu.Unlock()

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.limiter.Release()
			defer func() {
				_ = conn.Close()
				l.mu.Lock()
				delete(l.conns, conn)
				l.mu.Unlock()
			}()

			connLogger := logger.With(slog.String("remote", conn.RemoteAddr().String()))
			l.cfg.Handler(logging.WithContext(ctx, connLogger), conn)
		}()
	}

	l.wg.Wait()
	logger.Info("listener stopped")
	return ctx.Err()
}
