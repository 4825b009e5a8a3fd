package store

import (
	"testing"

	"github.com/infodancer/chatd/internal/config"
)

func TestConversationID(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{a: "alice", b: "bob", want: "alice:bob"},
		{a: "bob", b: "alice", want: "alice:bob"},
		{a: "alice", b: "alice", want: "alice:alice"},
		{a: "zed", b: "amy", want: "amy:zed"},
	}

	for _, tt := range tests {
		if got := ConversationID(tt.a, tt.b); got != tt.want {
			t.Errorf("ConversationID(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestConversationIDSymmetric(t *testing.T) {
	if ConversationID("alice", "bob") != ConversationID("bob", "alice") {
		t.Error("ConversationID is not symmetric")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{term: "alice", want: "alice"},
		{term: "a_c", want: `a\_c`},
		{term: "50%", want: `50\%`},
		{term: `back\slash`, want: `back\\slash`},
		{term: `%_\`, want: `\%\_\\`},
	}

	for _, tt := range tests {
		if got := escapeLike(tt.term); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.term, got, tt.want)
		}
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DBConfig
		want string
	}{
		{
			name: "explicit DSN wins",
			cfg: config.DBConfig{
				DSN:      "postgres://u:p@db/chat",
				Server:   "ignored",
				Database: "ignored",
			},
			want: "postgres://u:p@db/chat",
		},
		{
			name: "full parts",
			cfg: config.DBConfig{
				Server:   "db.internal",
				Database: "chat",
				Username: "svc",
				Password: "hunter2",
			},
			want: "host=db.internal dbname=chat user=svc password=hunter2",
		},
		{
			name: "defaults to localhost",
			cfg: config.DBConfig{
				Database: "chat",
			},
			want: "host=localhost dbname=chat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildDSN(tt.cfg); got != tt.want {
				t.Errorf("BuildDSN = %q, want %q", got, tt.want)
			}
		})
	}
}
