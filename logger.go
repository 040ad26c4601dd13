package servicetest

import "github.com/GoCodeAlone/servicetest/logging"

// Logger is the structured logger used by the harness. See package logging
// for the available implementations.
type Logger = logging.Logger
