package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func pipeConn(t *testing.T, maxLine int) (*Connection, net.Conn) {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = srv.Close()
	})
	return NewConnection(srv, 0, maxLine), client
}

func TestReadLineStripsTerminators(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "hello\n", want: "hello"},
		{input: "hello\r\n", want: "hello"},
		{input: "\n", want: ""},
	}

	for _, tt := range tests {
		conn, client := pipeConn(t, 1024)

		go func() { _, _ = client.Write([]byte(tt.input)) }()

		got, err := conn.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ReadLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReadLineFrameTooLong(t *testing.T) {
	conn, client := pipeConn(t, 16)

	go func() {
		_, _ = client.Write([]byte(strings.Repeat("x", 64) + "\n"))
	}()

	_, err := conn.ReadLine()
	if !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("ReadLine = %v, want ErrFrameTooLong", err)
	}
}

func TestReadLineEOF(t *testing.T) {
	conn, client := pipeConn(t, 1024)

	_ = client.Close()

	if _, err := conn.ReadLine(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine after peer close = %v, want EOF", err)
	}
}

func TestReadLineIdleTimeout(t *testing.T) {
	client, srv := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = srv.Close()
	})
	conn := NewConnection(srv, 20*time.Millisecond, 1024)

	_, err := conn.ReadLine()
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("ReadLine = %v, want timeout", err)
	}
}

func TestClosedConnectionErrors(t *testing.T) {
	conn, _ := pipeConn(t, 1024)

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := conn.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if !conn.IsClosed() {
		t.Error("IsClosed = false after Close")
	}
	if _, err := conn.ReadLine(); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("ReadLine after Close = %v, want ErrConnectionClosed", err)
	}
	if err := conn.WriteString("x\n"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("WriteString after Close = %v, want ErrConnectionClosed", err)
	}
}

// Two goroutines each write a multi-line batch; the batches must reach the
// socket contiguously.
func TestWithWriterBatchesAreContiguous(t *testing.T) {
	conn, client := pipeConn(t, 1024)

	const lines = 50
	reader := bufio.NewReader(client)

	done := make(chan struct{})
	var got []string
	go func() {
		defer close(done)
		for i := 0; i < 2*lines; i++ {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			got = append(got, strings.TrimSuffix(line, "\n"))
		}
	}()

	var wg sync.WaitGroup
	for _, tag := range []string{"a", "b"} {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			_ = conn.WithWriter(func(w *bufio.Writer) error {
				for i := 0; i < lines; i++ {
					if _, err := w.WriteString(tag + "\n"); err != nil {
						return err
					}
				}
				return nil
			})
		}(tag)
	}
	wg.Wait()
	<-done

	if len(got) != 2*lines {
		t.Fatalf("read %d lines, want %d", len(got), 2*lines)
	}

	// Each batch occupies one contiguous run, so the tag changes at most once.
	changes := 0
	for i := 1; i < len(got); i++ {
		if got[i] != got[i-1] {
			changes++
		}
	}
	if changes > 1 {
		t.Errorf("batches interleaved: %d tag changes", changes)
	}
}
