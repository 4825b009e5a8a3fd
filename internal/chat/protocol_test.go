package chat

import (
	"reflect"
	"testing"
	"time"

	"github.com/infodancer/chatd/internal/store"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Frame
	}{
		{
			name: "simple send",
			line: "alice:bob:hello",
			want: Frame{Kind: FrameSend, Sender: "alice", Recipient: "bob", Body: "hello"},
		},
		{
			name: "body with colons",
			line: "alice:bob:meet at 10:30: ok?",
			want: Frame{Kind: FrameSend, Sender: "alice", Recipient: "bob", Body: "meet at 10:30: ok?"},
		},
		{
			name: "empty body",
			line: "alice:bob:",
			want: Frame{Kind: FrameSend, Sender: "alice", Recipient: "bob", Body: ""},
		},
		{
			name: "contacts",
			line: "GET_CONTACTS_FOR:alice",
			want: Frame{Kind: FrameContacts, User: "alice"},
		},
		{
			name: "contacts with whitespace",
			line: "GET_CONTACTS_FOR: alice ",
			want: Frame{Kind: FrameContacts, User: "alice"},
		},
		{
			name: "history",
			line: "GET_CHAT_HISTORY:alice:bob",
			want: Frame{Kind: FrameHistory, Self: "alice", Other: "bob"},
		},
		{
			name: "history missing other",
			line: "GET_CHAT_HISTORY:alice",
			want: Frame{Kind: FrameInvalid},
		},
		{
			name: "no colon",
			line: "hello there",
			want: Frame{Kind: FrameInvalid},
		},
		{
			name: "one colon",
			line: "alice:bob",
			want: Frame{Kind: FrameInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFrame(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFrame(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseHandshake(t *testing.T) {
	tests := []struct {
		line     string
		username string
		token    string
	}{
		{line: "alice", username: "alice", token: ""},
		{line: "alice:tok123", username: "alice", token: "tok123"},
		{line: "alice:a.b:c", username: "alice", token: "a.b:c"},
		{line: "", username: "", token: ""},
		{line: ":tok", username: "", token: "tok"},
	}

	for _, tt := range tests {
		username, token := parseHandshake(tt.line)
		if username != tt.username || token != tt.token {
			t.Errorf("parseHandshake(%q) = (%q, %q), want (%q, %q)",
				tt.line, username, token, tt.username, tt.token)
		}
	}
}

func TestFormatters(t *testing.T) {
	if got, want := formatLive("alice", "hi"), "alice: hi\n"; got != want {
		t.Errorf("formatLive = %q, want %q", got, want)
	}
	if got, want := formatOfflineAck("bob"), "Server: Message stored for offline user 'bob'.\n"; got != want {
		t.Errorf("formatOfflineAck = %q, want %q", got, want)
	}
	if got, want := formatSpoolHeader(3), "Server: You have 3 offline message(s):\n"; got != want {
		t.Errorf("formatSpoolHeader = %q, want %q", got, want)
	}

	ts := time.Date(2026, 2, 3, 14, 5, 6, 0, time.UTC)
	if got, want := formatSpoolMessage("alice", ts, "hi"), "[OFFLINE] alice (2026-02-03 14:05:06): hi\n"; got != want {
		t.Errorf("formatSpoolMessage = %q, want %q", got, want)
	}

	if got, want := formatContacts([]string{"alice", "bob"}), "CONTACTED_USERS:alice,bob\n"; got != want {
		t.Errorf("formatContacts = %q, want %q", got, want)
	}
	if got, want := formatContacts(nil), "CONTACTED_USERS:\n"; got != want {
		t.Errorf("formatContacts(nil) = %q, want %q", got, want)
	}

	m := store.HistoryMessage{
		Sender:    "alice",
		Recipient: "bob",
		Body:      "hi",
		Timestamp: ts,
		Delivered: true,
	}
	if got, want := formatHistoryMessage(m), "CHAT_HISTORY_MSG:alice:bob:hi:2026-02-03 14:05:06:true\n"; got != want {
		t.Errorf("formatHistoryMessage = %q, want %q", got, want)
	}
}

func TestEffectiveSender(t *testing.T) {
	strict := NewSession("alice", true)
	if got := strict.EffectiveSender("mallory"); got != "alice" {
		t.Errorf("strict EffectiveSender = %q, want %q", got, "alice")
	}

	lax := NewSession("alice", false)
	if got := lax.EffectiveSender("mallory"); got != "mallory" {
		t.Errorf("lax EffectiveSender = %q, want %q", got, "mallory")
	}
}
