package watchpost

import (
	"context"

	"github.com/pitkley/watchpost/cmd/watchpost/cmd"
	"github.com/pitkley/watchpost/pkg/watchcheck"
)

type (
	Spec       = watchcheck.Spec
	Check      = watchcheck.Check
	Result     = watchcheck.Result
	Builder    = watchcheck.Builder
	BuilderOpt = watchcheck.BuilderOpt

	Metric     = watchcheck.Metric
	Thresholds = watchcheck.Thresholds
	Boundaries = watchcheck.Boundaries
	State      = watchcheck.State

	Environment    = watchcheck.Environment
	EnvironmentOpt = watchcheck.EnvironmentOpt

	Decision           = watchcheck.Decision
	SchedulingStrategy = watchcheck.SchedulingStrategy

	HostnameStrategy = watchcheck.HostnameStrategy
	StaticHostname   = watchcheck.StaticHostname
	HostnameTemplate = watchcheck.HostnameTemplate
	HostnameFunc     = watchcheck.HostnameFunc

	ErrorHandler   = watchcheck.ErrorHandler
	UnavailableErr = watchcheck.UnavailableErr

	DatasourceFactory      = watchcheck.DatasourceFactory
	DatasourceRegistration = watchcheck.DatasourceRegistration
	DatasourceOpt          = watchcheck.DatasourceOpt
	FactoryParam           = watchcheck.FactoryParam
)

const (
	StateOK      = watchcheck.StateOK
	StateWarn    = watchcheck.StateWarn
	StateCrit    = watchcheck.StateCrit
	StateUnknown = watchcheck.StateUnknown

	Schedule     = watchcheck.Schedule
	Skip         = watchcheck.Skip
	DontSchedule = watchcheck.DontSchedule

	NoPiggybackHost = watchcheck.NoPiggybackHost
)

var (
	Execute = cmd.Execute

	RegisterCheck           = watchcheck.RegisterCheck
	RegisterDatasource      = watchcheck.RegisterDatasource
	RegisterEnvironments    = watchcheck.RegisterEnvironments
	RegisterDefaultStrategy = watchcheck.RegisterDefaultStrategy
	RegisterConstructor     = watchcheck.RegisterConstructor

	NewEnvironment = watchcheck.NewEnvironment
	WithHostname   = watchcheck.WithHostname
	WithMeta       = watchcheck.WithMeta

	NewBuilder           = watchcheck.NewBuilder
	WithBaseDetails      = watchcheck.WithBaseDetails
	WithNameSuffix       = watchcheck.WithNameSuffix
	WithHostnameOverride = watchcheck.WithHostnameOverride

	WithDatasourceStrategies = watchcheck.WithDatasourceStrategies

	MustRunInExecutionEnvironments   = watchcheck.MustRunInExecutionEnvironments
	MustRunAgainstTargetEnvironments = watchcheck.MustRunAgainstTargetEnvironments
	MustRunInTargetEnvironment       = watchcheck.MustRunInTargetEnvironment
	DetectImpossibleCombination      = watchcheck.DetectImpossibleCombination

	NoPiggyback = watchcheck.NoPiggyback

	ExpandByHostname   = watchcheck.ExpandByHostname
	ExpandByNameSuffix = watchcheck.ExpandByNameSuffix

	DatasourceUnavailable = watchcheck.DatasourceUnavailable
	WorstState            = watchcheck.WorstState
)

// NewDatasource mirrors watchcheck.NewDatasource; functions with type
// parameters cannot be re-exported through a var.
func NewDatasource[T any](construct func(ctx context.Context) (T, error), opts ...DatasourceOpt) *DatasourceRegistration {
	return watchcheck.NewDatasource(construct, opts...)
}

// NewDatasourceFactory mirrors watchcheck.NewDatasourceFactory.
func NewDatasourceFactory[F DatasourceFactory](construct func(ctx context.Context) (F, error), opts ...DatasourceOpt) *DatasourceRegistration {
	return watchcheck.NewDatasourceFactory(construct, opts...)
}

// FromFactory mirrors watchcheck.FromFactory.
func FromFactory[F DatasourceFactory](args ...any) FactoryParam {
	return watchcheck.FromFactory[F](args...)
}
