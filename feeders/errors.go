package feeders

import (
	"errors"
)

// Static error definitions for feeders

var (
	// ErrFeed wraps any failure reported through Load.
	ErrFeed = errors.New("config feeder error")

	ErrYamlDecode = errors.New("invalid YAML document")
	ErrTomlDecode = errors.New("invalid TOML document")
	ErrJSONDecode = errors.New("invalid JSON document")

	ErrDotEnvInvalidLineFormat = errors.New("invalid .env line format")
	ErrFlagInvalidFormat       = errors.New("config flag must be key=value")
)
