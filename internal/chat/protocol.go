// Package chat implements the messaging wire protocol: newline-terminated
// text frames classified by prefix, with colon-separated fields.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/infodancer/chatd/internal/store"
)

// Control frame prefixes.
const (
	contactsPrefix = "GET_CONTACTS_FOR"
	historyPrefix  = "GET_CHAT_HISTORY:"
)

// timestampFormat is how timestamps appear in spool and history frames.
const timestampFormat = "2006-01-02 15:04:05"

// FrameKind classifies an inbound frame.
type FrameKind int

const (
	// FrameInvalid marks a frame that matches no known form. Invalid
	// frames are dropped without a reply.
	FrameInvalid FrameKind = iota

	// FrameSend is `<sender>:<recipient>:<body>`.
	FrameSend

	// FrameContacts is `GET_CONTACTS_FOR:<username>`.
	FrameContacts

	// FrameHistory is `GET_CHAT_HISTORY:<self>:<other>`.
	FrameHistory
)

// String returns the frame kind label used in logs and metrics.
func (k FrameKind) String() string {
	switch k {
	case FrameSend:
		return "send"
	case FrameContacts:
		return "contacts"
	case FrameHistory:
		return "history"
	default:
		return "invalid"
	}
}

// Frame is a parsed inbound frame. Only the fields for its Kind are set.
type Frame struct {
	Kind FrameKind

	// Send fields
	Sender    string
	Recipient string
	Body      string

	// Contacts field
	User string

	// History fields
	Self  string
	Other string
}

// ParseFrame classifies a frame by prefix. Send frames split on the first
// two colons only, so message bodies may contain colons; empty bodies are
// legal. Anything that fits no form is FrameInvalid.
func ParseFrame(line string) Frame {
	if strings.HasPrefix(line, contactsPrefix) {
		idx := strings.Index(line, ":")
		if idx < 0 {
			return Frame{Kind: FrameInvalid}
		}
		return Frame{
			Kind: FrameContacts,
			User: strings.TrimSpace(line[idx+1:]),
		}
	}

	if strings.HasPrefix(line, historyPrefix) {
		rest := line[len(historyPrefix):]
		idx := strings.Index(rest, ":")
		if idx < 0 {
			return Frame{Kind: FrameInvalid}
		}
		return Frame{
			Kind:  FrameHistory,
			Self:  strings.TrimSpace(rest[:idx]),
			Other: strings.TrimSpace(rest[idx+1:]),
		}
	}

	i1 := strings.Index(line, ":")
	if i1 < 0 {
		return Frame{Kind: FrameInvalid}
	}
	i2 := strings.Index(line[i1+1:], ":")
	if i2 < 0 {
		return Frame{Kind: FrameInvalid}
	}
	i2 += i1 + 1

	return Frame{
		Kind:      FrameSend,
		Sender:    line[:i1],
		Recipient: line[i1+1 : i2],
		Body:      line[i2+1:],
	}
}

// parseHandshake splits the first frame into username and optional token.
func parseHandshake(line string) (username, token string) {
	parts := strings.SplitN(strings.TrimSpace(line), ":", 2)
	username = parts[0]
	if len(parts) == 2 {
		token = parts[1]
	}
	return username, token
}

func formatLive(sender, body string) string {
	return sender + ": " + body + "\n"
}

func formatOfflineAck(recipient string) string {
	return "Server: Message stored for offline user '" + recipient + "'.\n"
}

func formatSpoolHeader(count int) string {
	return fmt.Sprintf("Server: You have %d offline message(s):\n", count)
}

func formatSpoolMessage(sender string, ts time.Time, body string) string {
	return "[OFFLINE] " + sender + " (" + ts.Format(timestampFormat) + "): " + body + "\n"
}

func formatContacts(users []string) string {
	return "CONTACTED_USERS:" + strings.Join(users, ",") + "\n"
}

func formatHistoryStart(self, other string) string {
	return "CHAT_HISTORY_START:" + self + ":" + other + "\n"
}

func formatHistoryMessage(m store.HistoryMessage) string {
	return fmt.Sprintf("CHAT_HISTORY_MSG:%s:%s:%s:%s:%t\n",
		m.Sender, m.Recipient, m.Body, m.Timestamp.Format(timestampFormat), m.Delivered)
}

func formatHistoryEnd(self, other string) string {
	return "CHAT_HISTORY_END:" + self + ":" + other + "\n"
}

func formatHistoryError(reason string) string {
	return "CHAT_HISTORY_ERROR:" + reason + "\n"
}
