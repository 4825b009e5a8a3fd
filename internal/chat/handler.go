package chat

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/infodancer/chatd/internal/logging"
	"github.com/infodancer/chatd/internal/metrics"
	"github.com/infodancer/chatd/internal/presence"
	"github.com/infodancer/chatd/internal/server"
	"github.com/infodancer/chatd/internal/store"
)

// MessageLog is the durable message store the broker routes through.
// *store.Store implements it; tests substitute an in-memory log.
type MessageLog interface {
	AppendMessage(ctx context.Context, sender, recipient, body string, delivered bool) error
	Undelivered(ctx context.Context, recipient string) ([]store.SpooledMessage, error)
	MarkDelivered(ctx context.Context, ids []int64) error
	History(ctx context.Context, a, b string) ([]store.HistoryMessage, error)
	Contacts(ctx context.Context, user string) ([]string, error)
}

// TokenVerifier validates handshake bearer tokens.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// HandlerConfig holds the collaborators for a Handler.
type HandlerConfig struct {
	Log      MessageLog
	Registry *presence.Registry
	Tokens   TokenVerifier

	// RequireToken makes the handshake demand `username:token` with a
	// valid token whose subject matches the username. Without it the
	// bare-username handshake is accepted.
	RequireToken bool

	Collector metrics.Collector
}

// Handler implements the messaging protocol on top of server.Connection.
type Handler struct {
	log       MessageLog
	registry  *presence.Registry
	tokens    TokenVerifier
	strict    bool
	collector metrics.Collector
}

// NewHandler creates a protocol handler.
func NewHandler(cfg HandlerConfig) *Handler {
	collector := cfg.Collector
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}
	return &Handler{
		log:       cfg.Log,
		registry:  cfg.Registry,
		tokens:    cfg.Tokens,
		strict:    cfg.RequireToken,
		collector: collector,
	}
}

// Handle manages one client connection: handshake, spool drain, then the
// steady-state frame loop. It returns when the client disconnects, the
// context is cancelled, or the connection is evicted by a newer login.
func (h *Handler) Handle(ctx context.Context, conn *server.Connection) {
	logger := logging.FromContext(ctx)

	h.collector.ConnectionOpened()
	defer h.collector.ConnectionClosed()

	sess, ok := h.handshake(ctx, conn, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("username", sess.Username()))

	// Bind before draining: a message sent from now on sees this user
	// online and is delivered live, serialized after the spool flush by
	// the connection's write lock.
	if evicted := h.registry.Bind(ctx, sess.Username(), conn); evicted != nil {
		logger.Info("evicting previous connection")
		_ = evicted.Close()
	}

	defer func() {
		h.registry.Unbind(ctx, conn)
		_ = conn.Close()
		logger.Info("session ended")
	}()

	if err := h.drainSpool(ctx, conn, sess.Username()); err != nil {
		// Undrained messages stay flagged undelivered and surface on the
		// next reconnect.
		logger.Error("spool drain failed", slog.String("error", err.Error()))
	}

	logger.Info("session established")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("client disconnected")
			} else if !conn.IsClosed() {
				logger.Error("read error", slog.String("error", err.Error()))
			}
			return
		}

		if line == "" {
			continue
		}

		frame := ParseFrame(line)
		h.collector.FrameProcessed(frame.Kind.String())

		switch frame.Kind {
		case FrameContacts:
			h.handleContacts(ctx, conn, logger, frame.User)
		case FrameHistory:
			h.handleHistory(ctx, conn, logger, frame.Self, frame.Other)
		case FrameSend:
			h.handleSend(ctx, conn, logger, sess, frame)
		case FrameInvalid:
			logger.Debug("dropping malformed frame")
		}
	}
}

// handshake reads and validates the identification frame.
func (h *Handler) handshake(ctx context.Context, conn *server.Connection, logger *slog.Logger) (*Session, bool) {
	line, err := conn.ReadLine()
	if err != nil {
		logger.Debug("handshake read failed", slog.String("error", err.Error()))
		h.collector.HandshakeAttempt(false)
		return nil, false
	}

	username, token := parseHandshake(line)
	if username == "" {
		logger.Debug("handshake missing username")
		h.collector.HandshakeAttempt(false)
		return nil, false
	}

	if h.strict {
		if token == "" {
			logger.Info("handshake rejected: missing token", slog.String("username", username))
			h.collector.HandshakeAttempt(false)
			return nil, false
		}
		subject, err := h.tokens.Verify(token)
		if err != nil || subject != username {
			logger.Info("handshake rejected: invalid token", slog.String("username", username))
			h.collector.HandshakeAttempt(false)
			return nil, false
		}
	}

	h.collector.HandshakeAttempt(true)
	return NewSession(username, h.strict), true
}

// drainSpool empties the user's spool in batches, repeating until a query
// comes back empty. The repeat covers a sender that found the user offline
// before the bind and appended only after a batch was queried: its message
// lands in a later batch instead of waiting for the next reconnect.
func (h *Handler) drainSpool(ctx context.Context, conn *server.Connection, username string) error {
	for {
		drained, err := h.drainBatch(ctx, conn, username)
		if err != nil {
			return err
		}
		if drained == 0 {
			return nil
		}
	}
}

// drainBatch emits one batch of undelivered messages, then marks exactly
// those rows delivered. The undelivered query and the emit run under the
// connection's write lock, so a concurrent live delivery cannot reach the
// socket before the spool does; marking by the drained ids means a message
// spooled mid-drain is never flagged without being sent.
func (h *Handler) drainBatch(ctx context.Context, conn *server.Connection, username string) (int, error) {
	var ids []int64

	err := conn.WithWriter(func(w *bufio.Writer) error {
		messages, err := h.log.Undelivered(ctx, username)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		if _, err := w.WriteString(formatSpoolHeader(len(messages))); err != nil {
			return err
		}
		for _, m := range messages {
			if _, err := w.WriteString(formatSpoolMessage(m.Sender, m.Timestamp, m.Body)); err != nil {
				return err
			}
			ids = append(ids, m.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, nil
	}

	if err := h.log.MarkDelivered(ctx, ids); err != nil {
		return 0, err
	}

	h.collector.MessagesDrained(len(ids))
	return len(ids), nil
}

// handleSend routes a message: live delivery when the recipient is online,
// spool otherwise. No directory check is made on the recipient; the spool
// accepts any name.
func (h *Handler) handleSend(ctx context.Context, conn *server.Connection, logger *slog.Logger, sess *Session, frame Frame) {
	sender := sess.EffectiveSender(frame.Sender)

	if dest, online := h.registry.Lookup(frame.Recipient); online {
		if err := dest.WriteString(formatLive(sender, frame.Body)); err == nil {
			if err := h.log.AppendMessage(ctx, sender, frame.Recipient, frame.Body, true); err != nil {
				logger.Error("storing delivered message failed", slog.String("error", err.Error()))
			}
			h.collector.MessageDelivered()
			return
		}
		// The recipient's socket died between lookup and write; fall
		// through and spool instead.
		logger.Debug("live delivery failed, spooling", slog.String("recipient", frame.Recipient))
	}

	if err := h.log.AppendMessage(ctx, sender, frame.Recipient, frame.Body, false); err != nil {
		logger.Error("spooling message failed", slog.String("error", err.Error()))
		h.reply(conn, logger, "Server: Failed to store message.\n")
		return
	}

	h.collector.MessageSpooled()
	h.reply(conn, logger, formatOfflineAck(frame.Recipient))
}

// handleContacts replies with the user's distinct counterparties.
func (h *Handler) handleContacts(ctx context.Context, conn *server.Connection, logger *slog.Logger, user string) {
	contacts, err := h.log.Contacts(ctx, user)
	if err != nil {
		logger.Error("fetching contacts failed", slog.String("error", err.Error()))
		h.reply(conn, logger, "Server: Error retrieving contacted users\n")
		return
	}
	h.reply(conn, logger, formatContacts(contacts))
}

// handleHistory dumps the conversation between self and other, framed by
// START and END markers, as one uninterruptible write batch.
func (h *Handler) handleHistory(ctx context.Context, conn *server.Connection, logger *slog.Logger, self, other string) {
	messages, err := h.log.History(ctx, self, other)
	if err != nil {
		logger.Error("fetching history failed", slog.String("error", err.Error()))
		h.reply(conn, logger, formatHistoryError("Error retrieving chat history"))
		return
	}

	err = conn.WithWriter(func(w *bufio.Writer) error {
		if _, err := w.WriteString(formatHistoryStart(self, other)); err != nil {
			return err
		}
		for _, m := range messages {
			if _, err := w.WriteString(formatHistoryMessage(m)); err != nil {
				return err
			}
		}
		_, err := w.WriteString(formatHistoryEnd(self, other))
		return err
	})
	if err != nil {
		logger.Error("writing history failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) reply(conn *server.Connection, logger *slog.Logger, s string) {
	if err := conn.WriteString(s); err != nil {
		logger.Debug("reply failed", slog.String("error", err.Error()))
	}
}
