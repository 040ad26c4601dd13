package inject

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/GoCodeAlone/servicetest/logging"
)

type binding struct {
	key      string
	provider Provider
	instance any
	resolved bool
}

// Injector holds provisioned bindings.
type Injector struct {
	logger    logging.Logger
	keys      []string
	bindings  map[string]*binding
	created   []string
	resolving map[string]bool
}

// New installs modules in order and provisions every binding. nil modules
// are skipped.
func New(logger logging.Logger, modules ...Module) (*Injector, error) {
	inj := &Injector{
		logger:    logging.OrNop(logger),
		bindings:  make(map[string]*binding),
		resolving: make(map[string]bool),
	}

	b := &binder{inj: inj}
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := b.Install(m); err != nil {
			return nil, err
		}
	}

	for _, key := range inj.keys {
		if _, err := inj.resolve(key); err != nil {
			return nil, err
		}
	}

	for _, target := range b.requested {
		if err := inj.InjectMembers(target); err != nil {
			return nil, err
		}
	}
	for _, hook := range b.hooks {
		if err := hook(inj); err != nil {
			return nil, fmt.Errorf("%w: creation hook: %w", ErrProvision, err)
		}
	}

	inj.logger.Debug("Injector created", "bindings", len(inj.keys))
	return inj, nil
}

func (inj *Injector) bind(key string, b *binding) error {
	if key == "" {
		return ErrInvalidKey
	}
	if _, exists := inj.bindings[key]; exists {
		return fmt.Errorf("%w: %s", ErrBindingAlreadyExists, key)
	}
	inj.bindings[key] = b
	inj.keys = append(inj.keys, key)
	if b.resolved {
		inj.created = append(inj.created, key)
	}
	return nil
}

func (inj *Injector) resolve(key string) (any, error) {
	b, ok := inj.bindings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrProvision, ErrBindingNotFound, key)
	}
	if b.resolved {
		return b.instance, nil
	}
	if inj.resolving[key] {
		return nil, fmt.Errorf("%w: %w: %s", ErrProvision, ErrCircularDependency, key)
	}

	inj.resolving[key] = true
	defer delete(inj.resolving, key)

	instance, err := b.provider(inj)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProvision, key, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrProvision, ErrNilInstance, key)
	}

	b.instance = instance
	b.resolved = true
	inj.created = append(inj.created, key)
	return instance, nil
}

// Instance returns the value bound to key. A missing key fails with an error
// wrapping both ErrProvision and ErrBindingNotFound.
func (inj *Injector) Instance(key string) (any, error) {
	return inj.resolve(key)
}

// ExistingBinding returns the value bound to key, if any.
func (inj *Injector) ExistingBinding(key string) (any, bool) {
	b, ok := inj.bindings[key]
	if !ok || !b.resolved {
		return nil, false
	}
	return b.instance, true
}

// Has reports whether key is bound. Unlike ExistingBinding it can be used
// from a Provider for bindings that are not provisioned yet.
func (inj *Injector) Has(key string) bool {
	_, ok := inj.bindings[key]
	return ok
}

// Keys returns the bound keys in binding order.
func (inj *Injector) Keys() []string {
	return slices.Clone(inj.keys)
}

// Created returns the bound keys in the order their instances were
// provisioned; dependencies come before the bindings that use them.
func (inj *Injector) Created() []string {
	return slices.Clone(inj.created)
}

// Logger returns the logger the injector was created with.
func (inj *Injector) Logger() logging.Logger {
	return inj.logger
}

// GetInstance assigns the value bound to key to the variable target points at.
//
// The value is assigned when it implements target's interface type, when it
// is directly assignable, or when it is a pointer whose element is
// assignable. A struct target receives the value in its first settable
// interface field the value implements.
func (inj *Injector) GetInstance(key string, target any) error {
	instance, err := inj.Instance(key)
	if err != nil {
		return err
	}
	return assign(key, instance, target)
}

// Get returns the value bound to key as a T.
func Get[T any](inj *Injector, key string) (T, error) {
	var out T
	err := inj.GetInstance(key, &out)
	return out, err
}

func assign(key string, instance, target any) error {
	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return ErrTargetNotPointer
	}

	serviceType := reflect.TypeOf(instance)
	targetType := targetValue.Elem().Type()

	// Case 1: Target is an interface that the instance implements
	if targetType.Kind() == reflect.Interface && serviceType.Implements(targetType) {
		targetValue.Elem().Set(reflect.ValueOf(instance))
		return nil
	}

	// Case 2: Direct assignment or pointer dereference
	if serviceType.AssignableTo(targetType) {
		targetValue.Elem().Set(reflect.ValueOf(instance))
		return nil
	} else if serviceType.Kind() == reflect.Ptr && serviceType.Elem().AssignableTo(targetType) {
		targetValue.Elem().Set(reflect.ValueOf(instance).Elem())
		return nil
	}

	// Case 3: Target is a struct with embedded interfaces
	if targetType.Kind() == reflect.Struct {
		for i := 0; i < targetType.NumField(); i++ {
			field := targetType.Field(i)
			if field.Type.Kind() == reflect.Interface && serviceType.Implements(field.Type) {
				fieldValue := targetValue.Elem().Field(i)
				if fieldValue.CanSet() {
					fieldValue.Set(reflect.ValueOf(instance))
					return nil
				}
			}
		}
	}

	return fmt.Errorf("%w: %s of type %s cannot be assigned to %s",
		ErrServiceIncompatible, key, serviceType, targetType)
}
