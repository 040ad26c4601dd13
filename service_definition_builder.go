package servicetest

import (
	"fmt"

	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// Baseline keys seeded by NewServiceDefinitionBuilder.
const (
	HTTPServerPortKey            = "httpserver.port"
	HTTPServerShutdownTimeoutKey = "httpserver.shutdown-timeout"
	SchedulerPoolSizeKey         = "scheduler.pool-size"
	MetricsExportEnabledKey      = "metrics.export.enabled"
)

// BaselineConfig returns the defaults every built service starts from: an
// ephemeral HTTP port, no shutdown grace period, a single scheduler worker
// and no metrics export.
func BaselineConfig() config.Layer {
	return config.Layer{
		HTTPServerPortKey:            "0",
		HTTPServerShutdownTimeoutKey: "0s",
		SchedulerPoolSizeKey:         "1",
		MetricsExportEnabledKey:      "false",
	}
}

// ServiceDefinitionBuilder builds a ServiceDefinition from modules and
// configuration.
//
// The service configuration is layered as: the base (BaselineConfig, or the
// Config given to SetConfig), then the tweaks passed to Module, then values
// set with SetConfigValue.
type ServiceDefinitionBuilder struct {
	base     *config.Config
	values   config.Layer
	refs     []ModuleRef
	tweaks   []TweakedModule
	resolver *ModuleResolver
}

// NewServiceDefinitionBuilder creates a builder seeded with BaselineConfig.
func NewServiceDefinitionBuilder() *ServiceDefinitionBuilder {
	return &ServiceDefinitionBuilder{
		base:     config.New(BaselineConfig()),
		values:   config.Layer{},
		resolver: DefaultModuleResolver(),
	}
}

// AddModule installs m in the service.
func (b *ServiceDefinitionBuilder) AddModule(m inject.Module) *ServiceDefinitionBuilder {
	b.refs = append(b.refs, ModuleInstance(m))
	return b
}

// AddModuleRef installs the module ref refers to, resolved against the final
// service configuration.
func (b *ServiceDefinitionBuilder) AddModuleRef(ref ModuleRef) *ServiceDefinitionBuilder {
	b.refs = append(b.refs, ref)
	return b
}

// AddTweakedModule installs m's service module, built with the final service
// configuration. m's config tweaks are not applied.
func (b *ServiceDefinitionBuilder) AddTweakedModule(m TweakedModule) *ServiceDefinitionBuilder {
	if m == nil {
		invalidArgument("tweaked module cannot be nil")
	}
	b.tweaks = append(b.tweaks, m)
	return b
}

// SetConfigValue sets key for this service only.
func (b *ServiceDefinitionBuilder) SetConfigValue(key, value string) *ServiceDefinitionBuilder {
	if key == "" {
		invalidArgument("config key cannot be empty")
	}
	b.values[key] = value
	return b
}

// SetConfig replaces the base configuration, baseline defaults included.
func (b *ServiceDefinitionBuilder) SetConfig(cfg *config.Config) *ServiceDefinitionBuilder {
	if cfg == nil {
		invalidArgument("config cannot be nil")
	}
	b.base = cfg
	return b
}

// WithModuleResolver sets the resolver used for module refs.
func (b *ServiceDefinitionBuilder) WithModuleResolver(r *ModuleResolver) *ServiceDefinitionBuilder {
	if r == nil {
		invalidArgument("module resolver cannot be nil")
	}
	b.resolver = r
	return b
}

// Build returns the definition. Later changes to the builder do not affect
// it.
func (b *ServiceDefinitionBuilder) Build() ServiceDefinition {
	def := &builtDefinition{
		base:     b.base,
		values:   b.values.Clone(),
		refs:     append([]ModuleRef(nil), b.refs...),
		tweaks:   append([]TweakedModule(nil), b.tweaks...),
		resolver: b.resolver,
	}
	return def
}

type builtDefinition struct {
	base     *config.Config
	values   config.Layer
	refs     []ModuleRef
	tweaks   []TweakedModule
	resolver *ModuleResolver
}

// Config returns the configuration the service would run with for tweaks.
func (d *builtDefinition) Config(tweaks config.Layer) *config.Config {
	return d.base.Override(tweaks, d.values)
}

func (d *builtDefinition) Module(tweaks config.Layer) (inject.Module, error) {
	cfg := d.Config(tweaks)

	modules := make([]inject.Module, 0, len(d.refs)+len(d.tweaks)+1)
	for _, ref := range d.refs {
		m, err := d.resolver.Resolve(ref, cfg)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	for i, t := range d.tweaks {
		// the service name is bound by the Rule, not known here
		m, err := t.ServiceModule("", cfg)
		if err != nil {
			return nil, fmt.Errorf("tweaked module %d (%T): %w", i, t, err)
		}
		modules = append(modules, m)
	}
	modules = append(modules, ConfigModule(cfg))

	return inject.Modules(modules...), nil
}
