package watchcheck

import (
	"context"
	"maps"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Spec declares a single check. Register it through RegisterCheck; the
// engine validates it and freezes it into a Check at startup.
type Spec struct {
	// Name identifies the check. When empty, the name of Func is used.
	Name string

	// Service is the Checkmk service name the check reports as. Required.
	Service string

	// ServiceLabels are attached verbatim to every result of the check.
	ServiceLabels map[string]string

	// Environments names the target environments the check runs against.
	// At least one is required, and each must be registered.
	Environments []string

	// CacheFor keeps results for the given duration ("90s", "5m", "1h",
	// "2d"). Empty or "none" disables caching for this check.
	CacheFor string

	// Timeout bounds a single execution. Empty or "none" means no
	// check-level timeout.
	Timeout string

	// Hostname overrides how piggyback hostnames are derived for this
	// check's results.
	Hostname HostnameStrategy

	// Strategies are consulted for every (execution, target) environment
	// pair, in addition to strategies inherited from bound datasources
	// and engine-wide defaults.
	Strategies []SchedulingStrategy

	// ErrorHandlers rewrite the synthesized failure result when the
	// check fails without producing any results.
	ErrorHandlers []ErrorHandler

	// FactoryParams binds function parameters (by index, counting the
	// context as 0) to datasource factory products.
	FactoryParams map[int]FactoryParam

	// Async routes the check through the async executor lane, for
	// long-running checks that must not occupy the sync worker pool.
	Async bool

	// Func is the check function. Its signature is dissected at
	// registration: func(ctx, ...bindings) (*Result | []*Result |
	// *Builder | iter.Seq[*Result], error).
	Func any
}

// Check is a validated, immutable check specification. The engine
// constructs it from a Spec; user code never builds one directly.
type Check struct {
	id            string
	service       string
	serviceLabels map[string]string
	environments  []string
	cacheFor      time.Duration
	timeout       time.Duration
	hostname      HostnameStrategy
	strategies    []SchedulingStrategy
	errorHandlers []ErrorHandler
	factoryParams map[int]FactoryParam
	async         bool
	fn            any

	plan *signaturePlan
}

// New validates a Spec and freezes it into a Check. All violations are
// aggregated so a misconfigured spec reports every problem at once.
func New(spec Spec) (*Check, error) {
	var merr *multierror.Error

	if spec.Func == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "check spec has no Func")
	}
	fnVal := reflect.ValueOf(spec.Func)
	if fnVal.Kind() != reflect.Func {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "check Func is %s, expected a function", fnVal.Kind())
	}

	id := spec.Name
	if id == "" {
		id = functionName(fnVal)
	}
	if id == "" {
		merr = multierror.Append(merr, errors.Wrap(ErrInvalidConfiguration, "check has neither a Name nor a named Func"))
	}

	if spec.Service == "" {
		merr = multierror.Append(merr, errors.Wrapf(ErrInvalidConfiguration, "check %q: Service is required", id))
	}
	if len(spec.Environments) == 0 {
		merr = multierror.Append(merr, errors.Wrapf(ErrInvalidConfiguration, "check %q: at least one target environment is required", id))
	}
	for i, name := range spec.Environments {
		if name == "" {
			merr = multierror.Append(merr, errors.Wrapf(ErrInvalidConfiguration, "check %q: environment name at index %d is empty", id, i))
		}
	}

	cacheFor, err := parseOptionalDuration(spec.CacheFor)
	if err != nil {
		merr = multierror.Append(merr, errors.Wrapf(err, "check %q: CacheFor", id))
	}
	timeout, err := parseOptionalDuration(spec.Timeout)
	if err != nil {
		merr = multierror.Append(merr, errors.Wrapf(err, "check %q: Timeout", id))
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return &Check{
		id:            id,
		service:       spec.Service,
		serviceLabels: maps.Clone(spec.ServiceLabels),
		environments:  slices.Clone(spec.Environments),
		cacheFor:      cacheFor,
		timeout:       timeout,
		hostname:      spec.Hostname,
		strategies:    slices.Clone(spec.Strategies),
		errorHandlers: slices.Clone(spec.ErrorHandlers),
		factoryParams: maps.Clone(spec.FactoryParams),
		async:         spec.Async,
		fn:            spec.Func,
	}, nil
}

// functionName derives a check id from the function's symbol name:
// the last path segment, with the method-value suffix stripped.
func functionName(fn reflect.Value) string {
	pc := fn.Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return ""
	}
	name := rf.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	return strings.TrimSuffix(name, "-fm")
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" || s == "none" {
		return 0, nil
	}

	return ParseDuration(s)
}

// ID returns the unique identifier of the check.
func (c *Check) ID() string { return c.id }

// Service returns the Checkmk service name the check reports as.
func (c *Check) Service() string { return c.service }

// ServiceLabels returns the labels attached to every result.
func (c *Check) ServiceLabels() map[string]string { return maps.Clone(c.serviceLabels) }

// Environments returns the names of the target environments.
func (c *Check) Environments() []string { return slices.Clone(c.environments) }

// CacheFor returns the result retention duration, zero when disabled.
func (c *Check) CacheFor() time.Duration { return c.cacheFor }

// Cacheable reports whether results of this check may be cached.
func (c *Check) Cacheable() bool { return c.cacheFor > 0 }

// Timeout returns the per-execution timeout, zero when unbounded.
func (c *Check) Timeout() time.Duration { return c.timeout }

// Async reports whether the check runs on the async executor lane.
func (c *Check) Async() bool { return c.async }

// Strategies returns the check's own scheduling strategies.
func (c *Check) Strategies() []SchedulingStrategy { return slices.Clone(c.strategies) }

// ErrorHandlers returns the check's error handlers in declaration order.
func (c *Check) ErrorHandlers() []ErrorHandler { return slices.Clone(c.errorHandlers) }

// HostnameStrategy returns the check-level hostname strategy, nil when unset.
func (c *Check) HostnameStrategy() HostnameStrategy { return c.hostname }

// ResolvePlan dissects the check function against the registry. It must
// succeed before the check is ever executed; binding problems surface
// here, at startup, not at collection time.
func (c *Check) ResolvePlan(registry *DatasourceRegistry) error {
	plan, err := buildPlan(c, registry)
	if err != nil {
		return err
	}
	c.plan = plan

	return nil
}

// Bindings describes the resolved non-context parameters, in order.
func (c *Check) Bindings() []string {
	if c.plan == nil {
		return nil
	}

	return c.plan.bindings()
}

// EffectiveStrategies returns the full strategy set consulted when
// scheduling this check: its own, those inherited from every bound
// datasource and factory, and the engine-wide defaults.
func (c *Check) EffectiveStrategies(registry *DatasourceRegistry, defaults []SchedulingStrategy) []SchedulingStrategy {
	strategies := slices.Clone(c.strategies)
	if c.plan != nil {
		for _, param := range c.plan.params {
			switch param.kind {
			case bindDatasource:
				strategies = append(strategies, registry.StrategiesForType(param.typ)...)
			case bindFactory:
				strategies = append(strategies, registry.StrategiesForFactory(param.factory.factory)...)
			}
		}
	}

	return append(strategies, defaults...)
}

// Execute runs the check against targetEnv, resolving datasources
// through the registry. The check-level timeout, when set, bounds the
// whole invocation including datasource construction.
func (c *Check) Execute(ctx context.Context, registry *DatasourceRegistry, targetEnv *Environment) ([]*Result, error) {
	if c.plan == nil {
		return nil, errors.Errorf("check %q executed before its plan was resolved", c.id)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return c.plan.call(ctx, registry, targetEnv)
}
