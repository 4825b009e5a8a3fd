package metrics

// NoopCollector is a no-op implementation of the Collector interface.
// All methods are empty stubs that do nothing.
type NoopCollector struct{}

// ConnectionOpened is a no-op.
func (n *NoopCollector) ConnectionOpened() {}

// ConnectionClosed is a no-op.
func (n *NoopCollector) ConnectionClosed() {}

// HandshakeAttempt is a no-op.
func (n *NoopCollector) HandshakeAttempt(success bool) {}

// AuthAttempt is a no-op.
func (n *NoopCollector) AuthAttempt(route string, success bool) {}

// FrameProcessed is a no-op.
func (n *NoopCollector) FrameProcessed(kind string) {}

// MessageDelivered is a no-op.
func (n *NoopCollector) MessageDelivered() {}

// MessageSpooled is a no-op.
func (n *NoopCollector) MessageSpooled() {}

// MessagesDrained is a no-op.
func (n *NoopCollector) MessagesDrained(count int) {}
