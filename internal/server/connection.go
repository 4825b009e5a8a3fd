package server

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Connection wraps a client socket with buffered, newline-framed I/O.
//
// Reads happen only on the connection's reader goroutine. Writes may come
// from any goroutine (live message routing writes to the recipient's
// connection), so every write path serializes on an internal mutex and a
// batch of lines written under one WithWriter call is never interleaved
// with other writers.
type Connection struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer

	writeMu sync.Mutex

	idleTimeout time.Duration

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewConnection creates a Connection reading frames of at most maxLine
// bytes. An idleTimeout of zero disables read deadlines.
func NewConnection(conn net.Conn, idleTimeout time.Duration, maxLine int) *Connection {
	return &Connection{
		conn:        conn,
		r:           bufio.NewReaderSize(conn, maxLine),
		w:           bufio.NewWriter(conn),
		idleTimeout: idleTimeout,
	}
}

// ReadLine reads the next newline-terminated frame and returns it without
// the trailing newline. Oversize frames return ErrFrameTooLong.
func (c *Connection) ReadLine() (string, error) {
	if c.closed.Load() {
		return "", ErrConnectionClosed
	}

	if c.idleTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			return "", err
		}
	}

	line, err := c.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", ErrFrameTooLong
		}
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// WriteString writes s to the client and flushes. Safe for concurrent use.
func (c *Connection) WriteString(s string) error {
	return c.WithWriter(func(w *bufio.Writer) error {
		_, err := w.WriteString(s)
		return err
	})
}

// WithWriter runs fn with exclusive access to the buffered writer, then
// flushes. Everything fn writes reaches the socket as one contiguous
// sequence; concurrent writers block until fn returns.
func (c *Connection) WithWriter(fn func(w *bufio.Writer) error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}

	if err := fn(c.w); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close closes the underlying socket. Safe to call multiple times.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// RemoteAddr returns the client's address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
