// Package database gives every service container its own SQL database.
//
// Importing the package registers the "database" module type, which
// servicetest.DatabaseTweak installs into every service with an in-memory
// sqlite database, so tests never share or leak state through storage:
//
//	import _ "github.com/GoCodeAlone/servicetest/modules/database"
//
// The *Database is bound under DatabaseKey and opened on StartStage. Schema
// migrations bound with Migrations are applied before the service announces.
package database

import (
	"fmt"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// ModuleName is the name of this module for registration and resolution.
const ModuleName = servicetest.DatabaseModuleName

// Binding keys
const (
	DatabaseKey   = "database"
	MigrationsKey = "database.migrations"
)

func init() {
	servicetest.RegisterModuleType(servicetest.ModuleType{
		Name:       ModuleName,
		WithConfig: NewModule,
	})
}

// NewModule returns the database module configured from cfg.
func NewModule(cfg *config.Config) (inject.Module, error) {
	c := DefaultConfig()
	if err := cfg.Bind(ModuleName, &c); err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindProvider(DatabaseKey, func(inj *inject.Injector) (any, error) {
			var migrations []Migration
			if inj.Has(MigrationsKey) {
				ms, err := inject.Get[[]Migration](inj, MigrationsKey)
				if err != nil {
					return nil, err
				}
				migrations = ms
			}
			return NewDatabase(c, inj.Logger(), migrations...), nil
		})
	}), nil
}

// Migrations binds the schema migrations applied by the database module.
func Migrations(migrations ...Migration) inject.Module {
	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindInstance(MigrationsKey, migrations)
	})
}
