package server

import "errors"

var (
	// ErrFrameTooLong is returned when a client sends a line exceeding the
	// configured frame size.
	ErrFrameTooLong = errors.New("frame exceeds maximum length")

	// ErrConnectionClosed is returned when reading from or writing to a
	// connection that has been closed.
	ErrConnectionClosed = errors.New("connection closed")
)
