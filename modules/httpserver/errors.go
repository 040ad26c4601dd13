package httpserver

import (
	"errors"
)

// Error definitions
var (
	// ErrServerNotStarted is returned when attempting to stop a server that hasn't been started.
	ErrServerNotStarted = errors.New("server not started")

	// ErrServerAlreadyStarted is returned by Start on a running server.
	ErrServerAlreadyStarted = errors.New("server already started")
)
