package inject

import "errors"

// Static errors for the injector
var (
	// ErrProvision is returned when an instance cannot be provided: the key is
	// not bound, the provider failed, or the bindings form a cycle.
	ErrProvision = errors.New("provision failed")

	ErrBindingNotFound      = errors.New("no binding for key")
	ErrBindingAlreadyExists = errors.New("binding already exists")
	ErrCircularDependency   = errors.New("circular dependency detected")
	ErrInvalidKey           = errors.New("binding key cannot be empty")
	ErrNilProvider          = errors.New("provider cannot be nil")
	ErrNilInstance          = errors.New("provider returned nil")

	// Target errors, shared with GetInstance and InjectMembers
	ErrTargetNotPointer    = errors.New("target must be a non-nil pointer")
	ErrTargetNotStruct     = errors.New("target must point to a struct")
	ErrServiceIncompatible = errors.New("instance cannot be assigned to target")
	ErrAmbiguousBinding    = errors.New("more than one binding matches field type")
)
