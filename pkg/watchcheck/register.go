package watchcheck

import (
	"go.uber.org/fx"

	"github.com/pitkley/watchpost/internal/registrar"
)

// RegisterCheck records a check spec for the engine. Call it from an
// init function of the package defining the check.
func RegisterCheck(spec Spec) {
	registrar.Register(
		fx.Annotate(
			func() Spec { return spec },
			fx.ResultTags(`group:"checks"`),
		),
	)
}

// RegisterDatasource records a datasource or datasource factory
// registration, built with NewDatasource or NewDatasourceFactory.
func RegisterDatasource(registration *DatasourceRegistration) {
	registrar.Register(
		fx.Annotate(
			func() *DatasourceRegistration { return registration },
			fx.ResultTags(`group:"datasources"`),
		),
	)
}

// RegisterEnvironments records the full environment set. Exactly one
// call is expected per process; the engine fails to start otherwise.
func RegisterEnvironments(envs ...*Environment) {
	registrar.Register(
		func() (*Environments, error) { return NewEnvironments(envs...) },
	)
}

// RegisterDefaultStrategy records a scheduling strategy consulted for
// every check, after the check's own and datasource-inherited ones.
func RegisterDefaultStrategy(strategy SchedulingStrategy) {
	registrar.Register(
		fx.Annotate(
			func() SchedulingStrategy { return strategy },
			fx.ResultTags(`group:"default_strategies"`),
		),
	)
}

// RegisterConstructor records an arbitrary constructor with the
// dependency injection container, for applications that want their own
// components wired alongside the framework's.
func RegisterConstructor(constructor any) {
	registrar.Register(constructor)
}
