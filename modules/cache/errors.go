package cache

import (
	"errors"
)

// Error definitions
var (
	// ErrNotConnected is returned when an operation is attempted on a cache that is not connected.
	ErrNotConnected = errors.New("cache not connected")

	// ErrAlreadyConnected is returned by Start on a connected cache.
	ErrAlreadyConnected = errors.New("cache already connected")

	// ErrInvalidKey is returned when the key is empty.
	ErrInvalidKey = errors.New("invalid cache key")
)
