package servicetest

import (
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// Names under which the optional modules/* packages register their module
// types. A name resolves only when the package is imported, typically with a
// blank import:
//
//	import _ "github.com/GoCodeAlone/servicetest/modules/httpserver"
const (
	HTTPServerModuleName = "httpserver"
	HTTPClientModuleName = "httpclient"
	MetricsModuleName    = "metrics"
	SchedulerModuleName  = "scheduler"
	DatabaseModuleName   = "database"
	CacheModuleName      = "cache"
)

// Keys pinned by DatabaseTweak and CacheTweak.
const (
	DatabaseDriverKey = "database.driver"
	DatabaseDSNKey    = "database.dsn"
	CacheAddressKey   = "cache.address"
)

// DefaultTweakedModules returns the extensions used by DefaultRuleBuilder,
// in order: LifecycleTweak, HTTPServerTweak, HTTPClientTweak, MetricsTweak,
// SchedulerTweak, DatabaseTweak, CacheTweak and EphemeralPortTweak.
func DefaultTweakedModules() []TweakedModule {
	return []TweakedModule{
		LifecycleTweak(),
		HTTPServerTweak(),
		HTTPClientTweak(),
		MetricsTweak(),
		SchedulerTweak(),
		DatabaseTweak(),
		CacheTweak(),
		EphemeralPortTweak(),
	}
}

// LifecycleTweak installs inject.LifecycleModule in every service, so their
// components are started and stopped by the Rule.
func LifecycleTweak() TweakedModule {
	return moduleRefTweak{ref: ModuleInstance(inject.LifecycleModule()), service: true}
}

// HTTPServerTweak installs the httpserver module in every service when it is
// linked in and disables the shutdown grace period.
func HTTPServerTweak() TweakedModule {
	return moduleRefTweak{
		ref:           ModuleByName(HTTPServerModuleName),
		service:       true,
		safe:          true,
		serviceTweaks: config.Layer{HTTPServerShutdownTimeoutKey: "0s"},
	}
}

// HTTPClientTweak installs the httpclient module in the test case container
// when it is linked in.
func HTTPClientTweak() TweakedModule {
	return moduleRefTweak{
		ref:      ModuleByName(HTTPClientModuleName),
		testCase: true,
		safe:     true,
	}
}

// MetricsTweak installs the metrics module in every service when it is
// linked in, with export disabled.
func MetricsTweak() TweakedModule {
	return moduleRefTweak{
		ref:           ModuleByName(MetricsModuleName),
		service:       true,
		safe:          true,
		serviceTweaks: config.Layer{MetricsExportEnabledKey: "false"},
	}
}

// SchedulerTweak installs the scheduler module in every service when it is
// linked in and limits every scheduler to a single worker.
func SchedulerTweak() TweakedModule {
	tweaks := config.Layer{SchedulerPoolSizeKey: "1"}
	return moduleRefTweak{
		ref:            ModuleByName(SchedulerModuleName),
		service:        true,
		safe:           true,
		serviceTweaks:  tweaks,
		testCaseTweaks: tweaks,
	}
}

// DatabaseTweak installs the database module in every service when it is
// linked in, pointed at a private in-memory sqlite database.
func DatabaseTweak() TweakedModule {
	return moduleRefTweak{
		ref:     ModuleByName(DatabaseModuleName),
		service: true,
		safe:    true,
		serviceTweaks: config.Layer{
			DatabaseDriverKey: "sqlite",
			DatabaseDSNKey:    ":memory:",
		},
	}
}

// CacheTweak installs the cache module in every service when it is linked
// in, backed by an embedded Redis server.
func CacheTweak() TweakedModule {
	return moduleRefTweak{
		ref:           ModuleByName(CacheModuleName),
		service:       true,
		safe:          true,
		serviceTweaks: config.Layer{CacheAddressKey: ""},
	}
}

// EphemeralPortTweak makes HTTP servers of the services and the test case
// bind to a port chosen by the system.
func EphemeralPortTweak() TweakedModule {
	tweaks := config.Layer{HTTPServerPortKey: "0"}
	return moduleRefTweak{serviceTweaks: tweaks, testCaseTweaks: tweaks}
}
