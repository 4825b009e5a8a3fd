// Package metrics provides interfaces and implementations for collecting
// chat server metrics. This package defines the Collector interface for
// recording metrics and a Prometheus HTTP server for exposing them.
package metrics

// Collector defines the interface for recording chat server metrics.
type Collector interface {
	// Connection metrics
	ConnectionOpened()
	ConnectionClosed()

	// Handshake metrics
	HandshakeAttempt(success bool)

	// Auth gateway metrics
	AuthAttempt(route string, success bool)

	// Frame metrics
	FrameProcessed(kind string)

	// Delivery metrics
	MessageDelivered()
	MessageSpooled()
	MessagesDrained(count int)
}
