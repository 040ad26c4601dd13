package config

import "errors"

var (
	// ErrConversion is returned when a value cannot be converted to the requested type.
	ErrConversion = errors.New("config value conversion failed")

	// ErrBind is returned when Bind cannot decode or validate a struct.
	ErrBind = errors.New("config bind failed")
)
