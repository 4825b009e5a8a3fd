package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements the Collector interface using Prometheus metrics.
type PrometheusCollector struct {
	// Connection metrics
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge

	// Handshake metrics
	handshakesTotal *prometheus.CounterVec

	// Auth gateway metrics
	authAttemptsTotal *prometheus.CounterVec

	// Frame metrics
	framesTotal *prometheus.CounterVec

	// Delivery metrics
	messagesDeliveredTotal prometheus.Counter
	messagesSpooledTotal   prometheus.Counter
	messagesDrainedTotal   prometheus.Counter
}

// NewPrometheusCollector creates a new PrometheusCollector with all metrics registered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatd_connections_total",
			Help: "Total number of chat connections opened.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatd_connections_active",
			Help: "Number of currently active chat connections.",
		}),

		handshakesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatd_handshakes_total",
			Help: "Total number of messaging handshakes.",
		}, []string{"result"}),

		authAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatd_auth_attempts_total",
			Help: "Total number of auth gateway requests.",
		}, []string{"route", "result"}),

		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatd_frames_total",
			Help: "Total number of inbound frames processed.",
		}, []string{"kind"}),

		messagesDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatd_messages_delivered_total",
			Help: "Total number of messages delivered to online recipients.",
		}),
		messagesSpooledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatd_messages_spooled_total",
			Help: "Total number of messages stored for offline recipients.",
		}),
		messagesDrainedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatd_messages_drained_total",
			Help: "Total number of spooled messages delivered on reconnect.",
		}),
	}

	// Register all metrics
	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.handshakesTotal,
		c.authAttemptsTotal,
		c.framesTotal,
		c.messagesDeliveredTotal,
		c.messagesSpooledTotal,
		c.messagesDrainedTotal,
	)

	return c
}

// ConnectionOpened increments the connection counter and active gauge.
func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

// ConnectionClosed decrements the active connections gauge.
func (c *PrometheusCollector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// HandshakeAttempt increments the handshake counter.
func (c *PrometheusCollector) HandshakeAttempt(success bool) {
	c.handshakesTotal.WithLabelValues(result(success)).Inc()
}

// AuthAttempt increments the auth gateway counter.
func (c *PrometheusCollector) AuthAttempt(route string, success bool) {
	c.authAttemptsTotal.WithLabelValues(route, result(success)).Inc()
}

// FrameProcessed increments the frame counter.
func (c *PrometheusCollector) FrameProcessed(kind string) {
	c.framesTotal.WithLabelValues(kind).Inc()
}

// MessageDelivered increments the live-delivery counter.
func (c *PrometheusCollector) MessageDelivered() {
	c.messagesDeliveredTotal.Inc()
}

// MessageSpooled increments the spooled-message counter.
func (c *PrometheusCollector) MessageSpooled() {
	c.messagesSpooledTotal.Inc()
}

// MessagesDrained adds to the drained-message counter.
func (c *PrometheusCollector) MessagesDrained(count int) {
	c.messagesDrainedTotal.Add(float64(count))
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// PrometheusServer exposes the default registry over HTTP.
type PrometheusServer struct {
	srv *http.Server
}

// NewPrometheusServer creates a metrics HTTP server for the given address and path.
func NewPrometheusServer(address, path string) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	return &PrometheusServer{
		srv: &http.Server{
			Addr:              address,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start begins serving metrics. It blocks until the context is canceled
// or an error occurs.
func (s *PrometheusServer) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the metrics server.
func (s *PrometheusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
