package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pitkley/watchpost/internal/executor"
	"github.com/pitkley/watchpost/pkg/common/wplog"
	"github.com/pitkley/watchpost/pkg/watchcheck"
)

// Filter narrows one poll to a subset of checks.
type Filter struct {
	// Prefix keeps only checks whose id starts with it.
	Prefix string
	// Contains keeps only checks whose id contains it.
	Contains string
	// Mode keeps only checks registered for the given executor mode.
	Mode *executor.Mode
}

func (f Filter) matches(c *watchcheck.Check) bool {
	if f.Prefix != "" && !strings.HasPrefix(c.ID(), f.Prefix) {
		return false
	}
	if f.Contains != "" && !strings.Contains(c.ID(), f.Contains) {
		return false
	}
	if f.Mode != nil && c.Async() != (*f.Mode == executor.ModeAsync) {
		return false
	}
	return true
}

// pairEmission is the outcome slot of one (check, environment) pair within a
// poll. Either results are already known (cache hit, skip, rejection) or a
// future will deliver them. Slots keep the emission order stable regardless
// of completion order.
type pairEmission struct {
	check   *watchcheck.Check
	env     *watchcheck.Environment
	results []*watchcheck.ExecutionResult
	future  *executor.Future
}

// Collect runs one full poll over every registered check.
func (e *Engine) Collect(ctx context.Context) ([]*watchcheck.ExecutionResult, error) {
	return e.CollectFiltered(ctx, Filter{})
}

// CollectFiltered runs one poll over the checks the filter keeps. Results
// are emitted in registration order of (check, target environment), with
// error-handler expansions preserving their expansion order. Cancelling ctx
// stops awaiting; in-flight check bodies finish in the background and may
// still populate the cache.
func (e *Engine) CollectFiltered(ctx context.Context, filter Filter) ([]*watchcheck.ExecutionResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Collect")
	defer span.End()

	emissions := make([]*pairEmission, 0, len(e.checks))
	for _, c := range e.checks {
		if !filter.matches(c) {
			continue
		}
		for _, envName := range c.Environments() {
			target, _ := e.envs.Get(envName)
			if em := e.collectPair(ctx, c, target); em != nil {
				emissions = append(emissions, em)
			}
		}
	}

	out := make([]*watchcheck.ExecutionResult, 0, len(emissions))
	for _, em := range emissions {
		if em.future == nil {
			out = append(out, em.results...)
			continue
		}

		val, err := em.future.Await(ctx)
		if results, ok := val.([]*watchcheck.ExecutionResult); ok {
			// the work fn returns the full expansion even when the check
			// threw, the error only feeds the executor statistics
			out = append(out, results...)
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "poll cancelled while awaiting check results")
		}
		out = append(out, e.failureResults(ctx, em.check, em.env, err)...)
	}

	return out, nil
}

func (e *Engine) collectPair(ctx context.Context, c *watchcheck.Check, target *watchcheck.Environment) *pairEmission {
	decision, err := e.decide(c, target)
	if err != nil {
		return &pairEmission{check: c, env: target, results: e.failureResults(ctx, c, target, err)}
	}

	if decision == watchcheck.DontSchedule {
		return nil
	}

	key := pairKey(c, target)

	if decision == watchcheck.Skip {
		if results, ok := e.cachedResults(ctx, c, key, true); ok {
			return &pairEmission{check: c, env: target, results: results}
		}
		return &pairEmission{
			check: c,
			env:   target,
			results: e.syntheticResults(ctx, c, target,
				"check skipped, no cached result available",
				fmt.Sprintf("scheduling strategies decided %s for execution environment %q and no cached result exists", watchcheck.Skip, e.executionEnv.Name()),
			),
		}
	}

	if results, ok := e.cachedResults(ctx, c, key, false); ok {
		return &pairEmission{check: c, env: target, results: results}
	}

	mode := executor.ModeSync
	if c.Async() {
		mode = executor.ModeAsync
	}

	future, err := e.exec.Submit(key, mode, e.pairWork(c, target, key))
	if err != nil {
		return &pairEmission{check: c, env: target, results: e.failureResults(ctx, c, target, err)}
	}
	return &pairEmission{check: c, env: target, future: future}
}

// decide folds the check's effective strategies into one decision.
// Strategies are user code, so panics are recovered and fail the pair.
func (e *Engine) decide(c *watchcheck.Check, target *watchcheck.Environment) (decision watchcheck.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("scheduling strategy of check %q panicked: %v", c.ID(), r)
		}
	}()

	strategies := c.EffectiveStrategies(e.registry, e.defaults)
	return decideWith(strategies, c, e.executionEnv, target), nil
}

// pairWork builds the unit submitted to the executor. Everything the pair
// produces is post-processed inside the work fn (error handlers, hostname
// resolution, cache write), so deduplicated concurrent polls observe
// identical final results and the cache is written exactly once per run.
func (e *Engine) pairWork(c *watchcheck.Check, target *watchcheck.Environment, key string) executor.Work {
	m := e.metrics[c.ID()]

	return func(ctx context.Context) (any, error) {
		ctx, span := e.tracer.Start(ctx, "engine.RunCheck")
		span.SetAttributes(
			attribute.String("check_id", c.ID()),
			attribute.String("environment", target.Name()),
		)
		defer span.End()

		start := time.Now()
		results, runErr := e.runCheck(ctx, c, target)

		var execResults []*watchcheck.ExecutionResult
		if runErr != nil {
			m.FailedRuns.Inc()
			m.FailedRunDuration.UpdateDuration(start)
			e.l.DebugContext(ctx, "check run failed",
				slog.String("check_id", c.ID()),
				slog.String("environment", target.Name()),
				wplog.Error(runErr),
			)

			execResults = e.handleRunError(ctx, c, target, runErr)
		} else {
			m.SuccessRuns.Inc()
			m.SuccessRunDuration.UpdateDuration(start)

			execResults = e.toExecutionResults(c, target, results)
		}

		for _, res := range execResults {
			e.resolveHostname(ctx, c, target, res)
		}

		if e.cacheApplies(c) && (runErr == nil || e.conf.CacheFailures) {
			e.storeResults(ctx, key, c, execResults)
		}

		return execResults, runErr
	}
}

// runCheck executes the check body with panic recovery. The plan applies
// the soft timeout and normalizes the returned shape to a result slice.
func (e *Engine) runCheck(ctx context.Context, c *watchcheck.Check, target *watchcheck.Environment) (results []*watchcheck.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = errors.Errorf("check %q panicked: %v", c.ID(), r)
		}
	}()

	return c.Execute(ctx, e.registry, target)
}

// handleRunError turns a failed run into its UNKNOWN expansion, applying the
// check's error handlers in declared order. A failing handler stops the
// chain; the expansion so far is kept with the handler failure appended to
// the details.
func (e *Engine) handleRunError(ctx context.Context, c *watchcheck.Check, target *watchcheck.Environment, runErr error) []*watchcheck.ExecutionResult {
	summary := "check execution failed"
	var unavailable *watchcheck.UnavailableErr
	if errors.As(runErr, &unavailable) {
		summary = "datasource unavailable"
	}

	results := []*watchcheck.ExecutionResult{{
		Check:           c,
		ServiceName:     c.Service(),
		ServiceLabels:   c.ServiceLabels(),
		EnvironmentName: target.Name(),
		State:           watchcheck.StateUnknown,
		Summary:         summary,
		Details:         fmt.Sprintf("%+v", runErr),
	}}

	for _, handler := range c.ErrorHandlers() {
		expanded, err := e.applyHandler(ctx, handler, c, target, results)
		if err != nil {
			e.l.WarnContext(ctx, "error handler failed",
				slog.String("check_id", c.ID()),
				slog.String("handler", handler.String()),
				wplog.Error(err),
			)
			for _, res := range results {
				res.Details += fmt.Sprintf("\nerror handler %s failed: %+v", handler.String(), err)
			}
			break
		}
		results = expanded
	}

	return results
}

func (e *Engine) applyHandler(ctx context.Context, handler watchcheck.ErrorHandler, c *watchcheck.Check, target *watchcheck.Environment, results []*watchcheck.ExecutionResult) (expanded []*watchcheck.ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			expanded = nil
			err = errors.Errorf("error handler %s panicked: %v", handler.String(), r)
		}
	}()

	return handler.HandleError(ctx, c, target, results)
}

func (e *Engine) toExecutionResults(c *watchcheck.Check, target *watchcheck.Environment, results []*watchcheck.Result) []*watchcheck.ExecutionResult {
	out := make([]*watchcheck.ExecutionResult, 0, len(results))
	for _, res := range results {
		out = append(out, &watchcheck.ExecutionResult{
			Check:           c,
			PiggybackHost:   res.HostnameOverride,
			ServiceName:     c.Service() + res.NameSuffix,
			ServiceLabels:   c.ServiceLabels(),
			EnvironmentName: target.Name(),
			State:           res.State,
			Summary:         res.Summary,
			Details:         watchcheck.DetailsText(res.Details),
			Metrics:         res.Metrics,
		})
	}
	return out
}

// resolveHostname stamps the final piggyback host on res. A resolution
// failure downgrades the result to UNKNOWN, appends the diagnostic to the
// details and routes the result to the synthesized fallback host, keeping
// the emitted stream well-formed.
func (e *Engine) resolveHostname(ctx context.Context, c *watchcheck.Check, target *watchcheck.Environment, res *watchcheck.ExecutionResult) {
	host, err := e.resolver.Resolve(c, target, res.PiggybackHost)
	if err == nil {
		res.PiggybackHost = host
		return
	}

	e.l.WarnContext(ctx, "hostname resolution failed",
		slog.String("check_id", c.ID()),
		slog.String("environment", target.Name()),
		wplog.Error(err),
	)

	diagnostic := fmt.Sprintf("hostname resolution failed: %+v", err)
	if res.Details != "" {
		res.Details += "\n" + diagnostic
	} else {
		res.Details = diagnostic
	}
	res.State = watchcheck.StateUnknown
	res.Summary = "hostname resolution failed"
	res.PiggybackHost = hostnameFallback(c, target)
}

func (e *Engine) cacheApplies(c *watchcheck.Check) bool {
	return !e.conf.DisableCache && c.Cacheable()
}

// cachedResults loads and decodes the cached expansion of one pair. Decode
// failures count as misses; the stale entry is left for the next write to
// overwrite.
func (e *Engine) cachedResults(ctx context.Context, c *watchcheck.Check, key string, allowExpired bool) ([]*watchcheck.ExecutionResult, bool) {
	if !e.cacheApplies(c) {
		return nil, false
	}

	m := e.metrics[c.ID()]
	entry, ok := e.cache.Get(ctx, key, allowExpired)
	if !ok {
		m.CacheMisses.Inc()
		return nil, false
	}

	var results []*watchcheck.ExecutionResult
	if err := json.Unmarshal(entry.Value, &results); err != nil {
		e.l.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key), wplog.Error(err))
		m.CacheMisses.Inc()
		return nil, false
	}

	if !allowExpired && entry.Expired(time.Now()) {
		m.GraceReads.Inc()
	} else {
		m.CacheHits.Inc()
	}

	for _, res := range results {
		res.Check = c
	}
	return results, true
}

func (e *Engine) storeResults(ctx context.Context, key string, c *watchcheck.Check, results []*watchcheck.ExecutionResult) {
	payload, err := json.Marshal(results)
	if err != nil {
		e.l.WarnContext(ctx, "cannot encode results for caching", slog.String("key", key), wplog.Error(err))
		return
	}
	if err := e.cache.Store(ctx, key, payload, c.CacheFor()); err != nil {
		e.l.WarnContext(ctx, "cannot cache results", slog.String("key", key), wplog.Error(err))
	}
}

// failureResults synthesizes the UNKNOWN emission for a pair that never
// produced results (strategy panic, executor rejection).
func (e *Engine) failureResults(ctx context.Context, c *watchcheck.Check, target *watchcheck.Environment, err error) []*watchcheck.ExecutionResult {
	return e.syntheticResults(ctx, c, target, "check execution failed", fmt.Sprintf("%+v", err))
}

func (e *Engine) syntheticResults(ctx context.Context, c *watchcheck.Check, target *watchcheck.Environment, summary, details string) []*watchcheck.ExecutionResult {
	res := &watchcheck.ExecutionResult{
		Check:           c,
		ServiceName:     c.Service(),
		ServiceLabels:   c.ServiceLabels(),
		EnvironmentName: target.Name(),
		State:           watchcheck.StateUnknown,
		Summary:         summary,
		Details:         details,
	}
	e.resolveHostname(ctx, c, target, res)
	return []*watchcheck.ExecutionResult{res}
}

func pairKey(c *watchcheck.Check, target *watchcheck.Environment) string {
	return fmt.Sprintf("%s::%s", c.ID(), target.Name())
}
