package chat

import "time"

// Session holds the per-connection state established by the handshake.
// It is a plain value owned by the connection's reader goroutine and goes
// out of scope when the reader exits.
type Session struct {
	username string
	strict   bool
	started  time.Time
}

// NewSession creates a session for the authenticated username. In strict
// mode the handshake identity overrides the sender field of send frames.
func NewSession(username string, strict bool) *Session {
	return &Session{
		username: username,
		strict:   strict,
		started:  time.Now(),
	}
}

// Username returns the handshake identity.
func (s *Session) Username() string {
	return s.username
}

// Started returns when the session was established.
func (s *Session) Started() time.Time {
	return s.started
}

// EffectiveSender returns the sender to record for a send frame. Send
// frames carry their own sender field; in strict mode it is ignored in
// favor of the handshake identity, otherwise it is trusted as-is.
func (s *Session) EffectiveSender(frameSender string) string {
	if s.strict {
		return s.username
	}
	return frameSender
}
