package servicetest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/logging"
)

// ModuleType describes how to construct a module. WithConfig is preferred;
// NoArgs is used only when WithConfig is nil.
type ModuleType struct {
	Name       string
	WithConfig func(cfg *config.Config) (inject.Module, error)
	NoArgs     func() (inject.Module, error)
}

type refKind int

const (
	refInstance refKind = iota
	refName
	refType
)

// ModuleRef refers to a module by name, by type, or as an instance.
type ModuleRef struct {
	kind     refKind
	name     string
	typ      ModuleType
	instance inject.Module
}

// ModuleByName refers to a module type registered with a resolver. The
// type only exists when the package registering it is linked in.
func ModuleByName(name string) ModuleRef {
	return ModuleRef{kind: refName, name: name}
}

// ModuleOfType refers to a module type directly.
func ModuleOfType(t ModuleType) ModuleRef {
	return ModuleRef{kind: refType, typ: t}
}

// ModuleInstance wraps an already built module.
func ModuleInstance(m inject.Module) ModuleRef {
	if m == nil {
		invalidArgument("module instance cannot be nil")
	}
	return ModuleRef{kind: refInstance, instance: m}
}

func (r ModuleRef) String() string {
	switch r.kind {
	case refName:
		return "name:" + r.name
	case refType:
		return "type:" + r.typ.Name
	default:
		return fmt.Sprintf("instance:%T", r.instance)
	}
}

// ModuleResolver turns ModuleRefs into modules using a table of registered
// module types.
type ModuleResolver struct {
	table  *moduleTable
	logger logging.Logger
}

type moduleTable struct {
	mu    sync.RWMutex
	types map[string]ModuleType
}

// NewModuleResolver creates a resolver with its own table holding types.
func NewModuleResolver(logger logging.Logger, types ...ModuleType) (*ModuleResolver, error) {
	r := &ModuleResolver{
		table:  &moduleTable{types: make(map[string]ModuleType)},
		logger: logging.OrNop(logger),
	}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var defaultResolver = &ModuleResolver{
	table:  &moduleTable{types: make(map[string]ModuleType)},
	logger: logging.Default(),
}

// DefaultModuleResolver returns the process-wide resolver populated by
// RegisterModuleType.
func DefaultModuleResolver() *ModuleResolver {
	return defaultResolver
}

// RegisterModuleType makes t available to DefaultModuleResolver under
// t.Name. It is meant to be called from the init function of the package
// providing the module, and panics if the type is invalid or the name is
// already taken.
func RegisterModuleType(t ModuleType) {
	if err := defaultResolver.Register(t); err != nil {
		panic(err)
	}
}

// WithLogger returns a resolver sharing r's table that logs to logger.
func (r *ModuleResolver) WithLogger(logger logging.Logger) *ModuleResolver {
	return &ModuleResolver{table: r.table, logger: logging.OrNop(logger)}
}

// Register adds t to the resolver's table.
func (r *ModuleResolver) Register(t ModuleType) error {
	if t.Name == "" {
		return fmt.Errorf("%w: module type name cannot be empty", ErrInvalidArgument)
	}
	if t.WithConfig == nil && t.NoArgs == nil {
		return fmt.Errorf("%w: %s", ErrNoConstructor, t.Name)
	}

	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	if _, exists := r.table.types[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrModuleTypeExists, t.Name)
	}
	r.table.types[t.Name] = t
	return nil
}

// Lookup returns the registered type called name.
func (r *ModuleResolver) Lookup(name string) (ModuleType, bool) {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()
	t, ok := r.table.types[name]
	return t, ok
}

// Names returns the registered type names, sorted.
func (r *ModuleResolver) Names() []string {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()
	names := make([]string, 0, len(r.table.types))
	for name := range r.table.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve returns the module ref refers to. Instances are returned as is;
// names are looked up in the table; types are constructed with cfg through
// WithConfig when available, else through NoArgs.
func (r *ModuleResolver) Resolve(ref ModuleRef, cfg *config.Config) (inject.Module, error) {
	switch ref.kind {
	case refInstance:
		if ref.instance == nil {
			return nil, fmt.Errorf("%w: empty module reference", ErrModuleResolution)
		}
		return ref.instance, nil
	case refName:
		t, ok := r.Lookup(ref.name)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrModuleResolution, ErrModuleTypeNotFound, ref.name)
		}
		return construct(t, cfg)
	default:
		return construct(ref.typ, cfg)
	}
}

func construct(t ModuleType, cfg *config.Config) (inject.Module, error) {
	var (
		m   inject.Module
		err error
	)
	switch {
	case t.WithConfig != nil:
		if cfg == nil {
			cfg = config.Empty()
		}
		m, err = t.WithConfig(cfg)
	case t.NoArgs != nil:
		m, err = t.NoArgs()
	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrModuleResolution, ErrNoConstructor, t.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: constructing %s: %w", ErrModuleResolution, t.Name, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s constructor returned nil", ErrModuleResolution, t.Name)
	}
	return m, nil
}

// ResolveSafe is like Resolve but never fails: when the module cannot be
// resolved it logs at debug level and returns inject.EmptyModule.
func (r *ModuleResolver) ResolveSafe(ref ModuleRef, cfg *config.Config) inject.Module {
	m, err := r.Resolve(ref, cfg)
	if err != nil {
		r.logger.Debug("Could not resolve module, using empty module", "module", ref.String(), "error", err)
		return inject.EmptyModule
	}
	return m
}
