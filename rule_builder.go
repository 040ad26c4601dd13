package servicetest

import (
	"fmt"

	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/logging"
)

type serviceEntry struct {
	name       string
	definition ServiceDefinition
	tweaked    TweakedModule
	config     *config.Config
}

// RuleBuilder assembles a Rule from named services, extensions and test
// configuration.
//
//	rule, err := servicetest.DefaultRuleBuilder().
//		AddService("orders", servicetest.NewServiceDefinitionBuilder().
//			AddModule(orders.Module()).
//			Build()).
//		SetTestConfigValue("orders.url", "http://localhost").
//		Build(&tc)
//
// Methods given a nil value or an empty service name panic with an error
// wrapping ErrInvalidArgument.
type RuleBuilder struct {
	registry  *TweakedModuleRegistry
	services  []serviceEntry
	index     map[string]int
	base      *config.Config
	keys      config.Layer
	logger    Logger
	observers []ObserverFunc
	resolver  *ModuleResolver
}

// NewRuleBuilder returns a builder with tweaks registered in order.
func NewRuleBuilder(tweaks ...TweakedModule) *RuleBuilder {
	return &RuleBuilder{
		registry: NewTweakedModuleRegistry(tweaks...),
		index:    make(map[string]int),
		base:     config.Empty(),
		keys:     config.Layer{},
		logger:   logging.Default(),
		resolver: DefaultModuleResolver(),
	}
}

// EmptyRuleBuilder returns a builder without any extension.
func EmptyRuleBuilder() *RuleBuilder {
	return NewRuleBuilder()
}

// DefaultRuleBuilder returns a builder with DefaultTweakedModules.
func DefaultRuleBuilder() *RuleBuilder {
	return NewRuleBuilder(DefaultTweakedModules()...)
}

func (b *RuleBuilder) addService(e serviceEntry) {
	if e.name == "" {
		invalidArgument("service name cannot be empty")
	}
	if i, exists := b.index[e.name]; exists {
		b.logger.Warn("Service registered twice, replacing earlier definition", "service", e.name)
		b.services[i] = e
		return
	}
	b.index[e.name] = len(b.services)
	b.services = append(b.services, e)
}

// AddService registers a service built from definition. Registering a name
// again replaces the earlier service but keeps its start position.
func (b *RuleBuilder) AddService(name string, definition ServiceDefinition) *RuleBuilder {
	if definition == nil {
		invalidArgument("service definition for %q cannot be nil", name)
	}
	b.addService(serviceEntry{name: name, definition: definition})
	return b
}

// AddTweakedService registers a service described by a TweakedModule. Its
// service tweaks and service module apply to this service only.
func (b *RuleBuilder) AddTweakedService(name string, tweaked TweakedModule) *RuleBuilder {
	if tweaked == nil {
		invalidArgument("tweaked module for %q cannot be nil", name)
	}
	b.addService(serviceEntry{name: name, tweaked: tweaked})
	return b
}

// AddTweakedServiceWithConfig is like AddTweakedService but the service
// starts from cfg instead of the test configuration.
func (b *RuleBuilder) AddTweakedServiceWithConfig(name string, cfg *config.Config, tweaked TweakedModule) *RuleBuilder {
	if cfg == nil {
		invalidArgument("config for %q cannot be nil", name)
	}
	if tweaked == nil {
		invalidArgument("tweaked module for %q cannot be nil", name)
	}
	b.addService(serviceEntry{name: name, tweaked: tweaked, config: cfg})
	return b
}

// AddMockedService registers ms as an extension.
//
// Deprecated: use AddTweakedModules.
func (b *RuleBuilder) AddMockedService(ms MockedService) *RuleBuilder {
	b.registry.Add(FromMockedService(ms))
	return b
}

// AddTweakedModules registers extensions. Later extensions win on
// conflicting tweaks.
func (b *RuleBuilder) AddTweakedModules(tweaks ...TweakedModule) *RuleBuilder {
	b.registry.Add(tweaks...)
	return b
}

// AddServiceModules installs the referenced modules into every service.
func (b *RuleBuilder) AddServiceModules(refs ...ModuleRef) *RuleBuilder {
	for _, ref := range refs {
		b.registry.Add(moduleRefTweak{ref: ref, service: true, resolver: b.moduleResolver})
	}
	return b
}

// AddTestCaseModules installs the referenced modules into the test case
// container.
func (b *RuleBuilder) AddTestCaseModules(refs ...ModuleRef) *RuleBuilder {
	for _, ref := range refs {
		b.registry.Add(moduleRefTweak{ref: ref, testCase: true, resolver: b.moduleResolver})
	}
	return b
}

// SetTestConfig replaces the base configuration shared by the test case and
// the services.
func (b *RuleBuilder) SetTestConfig(cfg *config.Config) *RuleBuilder {
	if cfg == nil {
		invalidArgument("test config cannot be nil")
	}
	b.base = cfg
	return b
}

// SetTestConfigValue sets key in the test case configuration. It is applied
// after every extension tweak and is not seen by services.
func (b *RuleBuilder) SetTestConfigValue(key, value string) *RuleBuilder {
	if key == "" {
		invalidArgument("config key cannot be empty")
	}
	b.keys[key] = value
	return b
}

// WithLogger sets the logger used by the Rule, its containers and module
// resolution.
func (b *RuleBuilder) WithLogger(logger Logger) *RuleBuilder {
	if logger == nil {
		invalidArgument("logger cannot be nil")
	}
	b.logger = logger
	return b
}

// WithObserver registers observers for the Rule's lifecycle events.
func (b *RuleBuilder) WithObserver(observers ...ObserverFunc) *RuleBuilder {
	for i, o := range observers {
		if o == nil {
			invalidArgument("observer %d cannot be nil", i)
		}
	}
	b.observers = append(b.observers, observers...)
	return b
}

// WithModuleResolver sets the resolver for module refs added with
// AddServiceModules, AddTestCaseModules and the default tweaked modules.
func (b *RuleBuilder) WithModuleResolver(r *ModuleResolver) *RuleBuilder {
	if r == nil {
		invalidArgument("module resolver cannot be nil")
	}
	b.resolver = r
	return b
}

func (b *RuleBuilder) moduleResolver() *ModuleResolver {
	return b.resolver.WithLogger(b.logger)
}

// resolverAware tweaks resolve module refs and accept the builder's resolver.
type resolverAware interface {
	withResolver(func() *ModuleResolver) TweakedModule
}

func (b *RuleBuilder) effectiveRegistry() *TweakedModuleRegistry {
	reg := &TweakedModuleRegistry{modules: make([]TweakedModule, 0, b.registry.Len())}
	for _, m := range b.registry.modules {
		if ra, ok := m.(resolverAware); ok {
			m = ra.withResolver(b.moduleResolver)
		}
		reg.modules = append(reg.modules, m)
	}
	return reg
}

// Build creates the Rule. testCase, when not nil, must be a pointer to a
// struct; its `inject` tagged fields are filled from the test case container
// during Before. extra modules are installed into the test case container.
//
// Every module is resolved here, so an unresolvable module ref fails Build
// rather than Before.
func (b *RuleBuilder) Build(testCase any, extra ...inject.Module) (*Rule, error) {
	reg := b.effectiveRegistry()

	testCfg := b.base.Override(reg.CollectTestCaseTweaks(), b.keys)
	tcModules, err := reg.TestCaseModules(testCfg)
	if err != nil {
		return nil, err
	}
	tcModules = append(tcModules, extra...)
	tcModules = append(tcModules, ConfigModule(testCfg))

	services := make([]serviceModule, 0, len(b.services))
	for _, svc := range b.services {
		m, err := b.serviceModule(reg, svc)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", svc.name, err)
		}
		services = append(services, serviceModule{name: svc.name, module: m})
	}

	b.logger.Debug("Built rule", "services", len(services), "extensions", reg.Len())
	return &Rule{
		logger:   b.logger,
		events:   &emitter{observers: append([]ObserverFunc(nil), b.observers...), logger: b.logger},
		services: services,
		testCase: testCase,
		tcModule: inject.Modules(tcModules...),
	}, nil
}

func (b *RuleBuilder) serviceModule(reg *TweakedModuleRegistry, svc serviceEntry) (inject.Module, error) {
	tweaks := reg.CollectServiceTweaks(svc.name)

	if svc.definition != nil {
		cfg := b.base.Override(tweaks)
		modules, err := reg.ServiceModules(svc.name, cfg)
		if err != nil {
			return nil, err
		}
		own, err := svc.definition.Module(tweaks)
		if err != nil {
			return nil, err
		}
		return inject.Modules(append(modules, own)...), nil
	}

	base := b.base
	if svc.config != nil {
		base = svc.config
	}
	cfg := base.Override(tweaks, svc.tweaked.ServiceConfigTweaks(svc.name))
	modules, err := reg.ServiceModules(svc.name, cfg)
	if err != nil {
		return nil, err
	}
	own, err := svc.tweaked.ServiceModule(svc.name, cfg)
	if err != nil {
		return nil, err
	}
	modules = append(modules, ConfigModule(cfg), own)
	return inject.Modules(modules...), nil
}
