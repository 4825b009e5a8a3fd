package store

import (
	"context"
	"fmt"
	"time"
)

// SpooledMessage is an undelivered message waiting for its recipient.
type SpooledMessage struct {
	ID        int64
	Sender    string
	Body      string
	Timestamp time.Time
}

// HistoryMessage is one row of a conversation dump.
type HistoryMessage struct {
	Sender    string
	Recipient string
	Body      string
	Timestamp time.Time
	Delivered bool
}

// AppendMessage inserts a message row. The conversation id is computed
// here, never by callers. The recipient is not checked against the users
// table; the spool accepts any name.
func (s *Store) AppendMessage(ctx context.Context, sender, recipient, body string, delivered bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (sender, recipient, message_content, conversation_id, delivered)
		 VALUES ($1, $2, $3, $4, $5)`,
		sender, recipient, body, ConversationID(sender, recipient), delivered)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// Undelivered returns the recipient's spooled messages in timestamp then
// insertion order, including their row ids so the caller can mark exactly
// the rows it has emitted.
func (s *Store) Undelivered(ctx context.Context, recipient string) ([]SpooledMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, sender, message_content, timestamp
		 FROM messages
		 WHERE recipient = $1 AND delivered = false
		 ORDER BY timestamp ASC, id ASC`,
		recipient)
	if err != nil {
		return nil, fmt.Errorf("querying undelivered messages: %w", err)
	}
	defer rows.Close()

	var messages []SpooledMessage
	for rows.Next() {
		var m SpooledMessage
		if err := rows.Scan(&m.ID, &m.Sender, &m.Body, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning undelivered message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying undelivered messages: %w", err)
	}
	return messages, nil
}

// MarkDelivered flags the given message rows as delivered. Marking by id
// guarantees a message spooled concurrently with a drain is never flagged
// without having been emitted.
func (s *Store) MarkDelivered(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET delivered = true WHERE id = ANY($1)`,
		ids)
	if err != nil {
		return fmt.Errorf("marking messages delivered: %w", err)
	}
	return nil
}

// History returns every message between a and b, in timestamp then
// insertion order. The result is symmetric in its arguments.
func (s *Store) History(ctx context.Context, a, b string) ([]HistoryMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sender, recipient, message_content, timestamp, delivered
		 FROM messages
		 WHERE (sender = $1 AND recipient = $2) OR (sender = $2 AND recipient = $1)
		 ORDER BY timestamp ASC, id ASC`,
		a, b)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var messages []HistoryMessage
	for rows.Next() {
		var m HistoryMessage
		if err := rows.Scan(&m.Sender, &m.Recipient, &m.Body, &m.Timestamp, &m.Delivered); err != nil {
			return nil, fmt.Errorf("scanning history message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return messages, nil
}

// Contacts returns the distinct counterparties of every conversation the
// user appears in, sorted ascending.
func (s *Store) Contacts(ctx context.Context, user string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT CASE
			WHEN sender = $1 THEN recipient
			ELSE sender
		 END AS contact
		 FROM messages
		 WHERE sender = $1 OR recipient = $1
		 ORDER BY contact ASC`,
		user)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		contacts = append(contacts, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	return contacts, nil
}
