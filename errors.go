package servicetest

import (
	"errors"
	"fmt"
)

// Harness errors
var (
	// Registration errors
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrModuleTypeExists   = errors.New("module type already registered")
	ErrModuleResolution   = errors.New("module resolution failed")
	ErrModuleTypeNotFound = errors.New("module type not found")
	ErrNoConstructor      = errors.New("module type has no constructor")

	// Rule errors
	ErrUnknownService     = errors.New("unknown service")
	ErrRuleAlreadyStarted = errors.New("rule already started")
	ErrRuleNotRunning     = errors.New("rule is not running")
)

// invalidArgument panics with an error wrapping ErrInvalidArgument. Used for
// programming errors at registration time, like net/http does for a nil
// handler.
func invalidArgument(format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...))
}
