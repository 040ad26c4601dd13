package lifecycle

import "errors"

// Static errors for lifecycle package
var (
	ErrUnknownStage = errors.New("unknown lifecycle stage")
	ErrNilListener  = errors.New("lifecycle listener cannot be nil")
	ErrListener     = errors.New("lifecycle listener failed")
)
