// Package httpapi implements the auth HTTP gateway: signup, login, user
// search, public-key storage, and token verification.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/infodancer/chatd/internal/metrics"
)

// UserStore is the credential and key storage the gateway needs.
// *store.Store implements it; tests substitute a fake.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	PasswordHash(ctx context.Context, username string) (string, error)
	SearchUsers(ctx context.Context, term string) ([]string, error)
	StorePublicKey(ctx context.Context, username, publicKey string) error
	PublicKey(ctx context.Context, username string) (string, error)
}

// TokenService mints and verifies bearer tokens.
type TokenService interface {
	Mint(username string) (string, error)
	Verify(token string) (string, error)
}

// Config holds the collaborators for a gateway Server.
type Config struct {
	Users     UserStore
	Tokens    TokenService
	Pepper    string
	Collector metrics.Collector
	Logger    *slog.Logger
}

// Server is the auth HTTP gateway.
type Server struct {
	users     UserStore
	tokens    TokenService
	pepper    string
	collector metrics.Collector
	logger    *slog.Logger
	engine    *gin.Engine
}

// New creates the gateway and registers its routes.
func New(cfg Config) *Server {
	collector := cfg.Collector
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		users:     cfg.Users,
		tokens:    cfg.Tokens,
		pepper:    cfg.Pepper,
		collector: collector,
		logger:    cfg.Logger,
		engine:    engine,
	}

	engine.POST("/signup", s.handleSignup)
	engine.POST("/login", s.handleLogin)
	engine.POST("/logout", s.handleLogout)
	engine.POST("/verify-token", s.handleVerifyToken)
	engine.GET("/search", s.handleSearch)
	engine.POST("/store_public_key", s.handleStorePublicKey)
	engine.POST("/get_public_key", s.handleGetPublicKey)

	return s
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the gateway on addr until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}
