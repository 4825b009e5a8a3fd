package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/infodancer/chatd/internal/auth"
	"github.com/infodancer/chatd/internal/chat"
	"github.com/infodancer/chatd/internal/config"
	"github.com/infodancer/chatd/internal/httpapi"
	"github.com/infodancer/chatd/internal/logging"
	"github.com/infodancer/chatd/internal/metrics"
	"github.com/infodancer/chatd/internal/presence"
	"github.com/infodancer/chatd/internal/server"
	"github.com/infodancer/chatd/internal/store"
)

// run wires the components together and serves until a signal arrives.
func run(cfg config.Config) error {
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	// Database is required; an unreachable store is a startup failure.
	st, err := store.Open(ctx, store.BuildDSN(cfg.DB), logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	// Presence publishing is best-effort: if Redis is unreachable the
	// registry still works and events are simply not emitted.
	var publisher presence.Publisher = presence.NoopPublisher{}
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, presence events disabled", "error", err.Error())
		} else {
			publisher = presence.NewRedisPublisher(client, logger)
			defer func() { _ = client.Close() }()
		}
	}

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
		metricsServer := metrics.NewPrometheusServer(cfg.Metrics.Address, cfg.Metrics.Path)
		go func() {
			if err := metricsServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret)
	registry := presence.NewRegistry(publisher, logger)

	handler := chat.NewHandler(chat.HandlerConfig{
		Log:          st,
		Registry:     registry,
		Tokens:       tokens,
		RequireToken: cfg.Auth.RequireToken,
		Collector:    collector,
	})

	listener := server.NewListener(server.ListenerConfig{
		Address:        cfg.Socket.Address(),
		IdleTimeout:    cfg.Timeouts.IdleTimeout(),
		MaxLineBytes:   cfg.Limits.MaxFrameBytes,
		MaxConnections: cfg.Limits.MaxConnections,
		Logger:         logger,
		Handler:        handler.Handle,
	})

	// Bind errors are fatal before any traffic is accepted.
	if err := listener.Listen(); err != nil {
		return err
	}

	gateway := httpapi.New(httpapi.Config{
		Users:     st,
		Tokens:    tokens,
		Pepper:    cfg.Auth.Pepper,
		Collector: collector,
		Logger:    logger,
	})

	logger.Info("starting chatd",
		"http_address", cfg.HTTP.Address,
		"socket_address", cfg.Socket.Address(),
		"require_token", cfg.Auth.RequireToken)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.Run(ctx, cfg.HTTP.Address); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("auth gateway: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("messaging listener: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errChan:
		cancel()
	}

	wg.Wait()
	logger.Info("chatd stopped")
	return runErr
}
