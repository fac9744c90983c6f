// Package engine orchestrates registered checks into polls. It owns the
// startup validation (signature plans, strategy conflicts, environment
// wiring), decides per (check, environment) pair whether to run, serves
// cached results, and post-processes everything a run produces into the
// final piggyback-ready stream.
package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/pitkley/watchpost/internal/cache"
	"github.com/pitkley/watchpost/internal/executor"
	"github.com/pitkley/watchpost/internal/hostname"
	"github.com/pitkley/watchpost/pkg/common/wplog"
	"github.com/pitkley/watchpost/pkg/watchcheck"
)

type EngineIn struct {
	fx.In

	Logger            *slog.Logger
	Config            Config
	Specs             []watchcheck.Spec                    `group:"checks"`
	Datasources       []*watchcheck.DatasourceRegistration `group:"datasources"`
	DefaultStrategies []watchcheck.SchedulingStrategy      `group:"default_strategies"`
	Environments      *watchcheck.Environments
	Cache             *cache.Cache
	Executor          *executor.Executor
}

type Engine struct {
	l            *slog.Logger
	conf         Config
	checks       []*watchcheck.Check
	envs         *watchcheck.Environments
	executionEnv *watchcheck.Environment
	registry     *watchcheck.DatasourceRegistry
	defaults     []watchcheck.SchedulingStrategy
	cache        *cache.Cache
	exec         *executor.Executor
	resolver     *hostname.Resolver
	tracer       trace.Tracer
	metrics      map[string]*checkMetrics
}

// New validates the whole registration surface and builds the engine.
// Every configuration problem is collected into one multierror so a broken
// deployment surfaces all of its mistakes in a single startup failure.
func New(in EngineIn) (*Engine, error) {
	registry, err := watchcheck.NewDatasourceRegistry(in.Datasources)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build datasource registry")
	}

	e := &Engine{
		l:        in.Logger.With(wplog.Component("engine")),
		conf:     in.Config,
		envs:     in.Environments,
		registry: registry,
		defaults: in.DefaultStrategies,
		cache:    in.Cache,
		exec:     in.Executor,
		resolver: hostname.NewResolver(in.Config.DefaultHostname, !in.Config.DisableHostnameCoercion),
		tracer:   otel.Tracer("watchpost/engine"),
		metrics:  make(map[string]*checkMetrics, len(in.Specs)),
	}

	var errlist *multierror.Error

	seen := make(map[string]struct{}, len(in.Specs))
	for _, spec := range in.Specs {
		c, err := watchcheck.New(spec)
		if err != nil {
			errlist = multierror.Append(errlist, err)
			continue
		}
		if _, dup := seen[c.ID()]; dup {
			errlist = multierror.Append(errlist, errors.Errorf("check %q is registered twice", c.ID()))
			continue
		}
		seen[c.ID()] = struct{}{}
		e.checks = append(e.checks, c)
	}

	for _, c := range e.checks {
		if err := c.ResolvePlan(registry); err != nil {
			errlist = multierror.Append(errlist, err)
			continue
		}
		if err := e.validateEnvironments(c); err != nil {
			errlist = multierror.Append(errlist, err)
			continue
		}
		if err := e.validateStrategies(c); err != nil {
			errlist = multierror.Append(errlist, err)
		}
	}

	executionEnv, ok := in.Environments.Get(in.Config.ExecutionEnvironment)
	if !ok {
		errlist = multierror.Append(errlist, errors.Wrapf(
			watchcheck.ErrInvalidConfiguration,
			"execution environment %q is not registered (known: %s)",
			in.Config.ExecutionEnvironment, strings.Join(environmentNames(in.Environments), ", "),
		))
	}
	e.executionEnv = executionEnv

	if err := errlist.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, c := range e.checks {
		e.metrics[c.ID()] = newCheckMetrics(c.ID())
	}

	e.l.Info("engine ready",
		slog.Int("checks", len(e.checks)),
		slog.Int("environments", len(in.Environments.All())),
		slog.String("execution_environment", executionEnv.Name()),
	)

	return e, nil
}

// NewFX builds the engine and closes the shared datasource instances when
// the application stops.
func NewFX(in EngineIn, lc fx.Lifecycle) (*Engine, error) {
	e, err := New(in)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create engine")
	}

	lc.Append(fx.StopHook(func() error {
		return e.registry.Close()
	}))

	return e, nil
}

func (e *Engine) validateEnvironments(c *watchcheck.Check) error {
	var errlist *multierror.Error
	for _, name := range c.Environments() {
		if !e.envs.Has(name) {
			errlist = multierror.Append(errlist, errors.Wrapf(
				watchcheck.ErrInvalidConfiguration,
				"check %q targets unknown environment %q", c.ID(), name,
			))
		}
	}
	return errlist.ErrorOrNil()
}

// validateStrategies rejects checks that can never run: for every declared
// target environment at least one registered environment must be able to
// host the execution without every strategy voting DONT_SCHEDULE.
func (e *Engine) validateStrategies(c *watchcheck.Check) error {
	strategies := c.EffectiveStrategies(e.registry, e.defaults)
	if len(strategies) == 0 {
		return nil
	}

	var errlist *multierror.Error
	for _, envName := range c.Environments() {
		target, ok := e.envs.Get(envName)
		if !ok {
			continue
		}

		satisfiable := false
		for _, execution := range e.envs.All() {
			if decideWith(strategies, c, execution, target) != watchcheck.DontSchedule {
				satisfiable = true
				break
			}
		}
		if satisfiable {
			continue
		}

		names := lo.Map(strategies, func(s watchcheck.SchedulingStrategy, _ int) string {
			return s.String()
		})
		errlist = multierror.Append(errlist, errors.Wrapf(
			watchcheck.ErrInvalidConfiguration,
			"check %q can never run against environment %q: no execution environment satisfies [%s]",
			c.ID(), envName, strings.Join(names, ", "),
		))
	}
	return errlist.ErrorOrNil()
}

func decideWith(strategies []watchcheck.SchedulingStrategy, c *watchcheck.Check, execution, target *watchcheck.Environment) watchcheck.Decision {
	decisions := make([]watchcheck.Decision, 0, len(strategies))
	for _, s := range strategies {
		decisions = append(decisions, s.Decide(c, execution, target))
	}
	return watchcheck.StrictestDecision(decisions...)
}

func environmentNames(envs *watchcheck.Environments) []string {
	return lo.Map(envs.All(), func(env *watchcheck.Environment, _ int) string {
		return env.Name()
	})
}

// Checks returns the validated checks in registration order.
func (e *Engine) Checks() []*watchcheck.Check {
	return slices.Clone(e.checks)
}

func (e *Engine) ExecutionEnvironment() *watchcheck.Environment {
	return e.executionEnv
}

func (e *Engine) ExecutorStatistics() executor.Statistics {
	return e.exec.Statistics()
}

func (e *Engine) ExecutorErrored() []executor.ErroredEntry {
	return e.exec.Errored()
}

// HostnamePreview is one row of the get-check-hostnames listing.
type HostnamePreview struct {
	CheckID     string `json:"check_id"`
	Environment string `json:"environment"`
	Hostname    string `json:"hostname,omitempty"`
	Error       string `json:"error,omitempty"`
}

// PreviewHostnames resolves the piggyback host of every (check, environment)
// pair without running any check. Per-pair resolution failures are reported
// in the row instead of aborting the listing.
func (e *Engine) PreviewHostnames() []HostnamePreview {
	previews := make([]HostnamePreview, 0, len(e.checks))
	for _, c := range e.checks {
		for _, envName := range c.Environments() {
			target, _ := e.envs.Get(envName)
			preview := HostnamePreview{CheckID: c.ID(), Environment: envName}

			host, err := e.resolver.Resolve(c, target, "")
			if err != nil {
				preview.Error = err.Error()
			} else {
				preview.Hostname = host
			}
			previews = append(previews, preview)
		}
	}
	return previews
}

func hostnameFallback(c *watchcheck.Check, target *watchcheck.Environment) string {
	return hostname.Coerce(fmt.Sprintf("%s-%s", c.Service(), target.Name()))
}
