// Package watchcheck is the authoring surface of watchpost: it turns
// plain Go functions into monitored Checkmk services.
//
// A check is a function taking a context plus any number of bound
// parameters, returning results and an error:
//   - *Result: a single service status
//   - []*Result or iter.Seq[*Result]: a fan-out over hosts or sub-services
//   - *Builder: an accumulated multi-part status, finalized by the framework
//
// Parameter binding:
//   - *Environment parameters receive the target environment of the run
//   - other parameter types are resolved against registered datasources,
//     constructed lazily and memoized for the process lifetime
//   - FactoryParams binds a parameter to a datasource factory product,
//     memoized per argument tuple
//
// Scheduling:
//   - SchedulingStrategies decide per (execution, target) environment
//     pair whether a check runs, reuses its cached result, or is dropped
//   - strategies attach to checks, to datasources (inherited by every
//     check binding them) and engine-wide as defaults; the strictest
//     decision wins
//
// Registration:
//   - RegisterCheck records a check Spec
//   - RegisterDatasource records a NewDatasource/NewDatasourceFactory registration
//   - RegisterEnvironments records the environment set, exactly once
//   - Registration typically happens in init() functions
//
// Example Usage:
//
//	import (
//	    "github.com/pitkley/watchpost/pkg/watchcheck"
//	)
//
//	func init() {
//	    watchcheck.RegisterCheck(watchcheck.Spec{
//	        Service:      "Postgres connectivity",
//	        Environments: []string{"prod"},
//	        CacheFor:     "5m",
//	        Func:         CheckPostgres,
//	    })
//	}
//
//	func CheckPostgres(ctx context.Context, db *DB) (*watchcheck.Result, error) {
//	    if err := db.Ping(ctx); err != nil {
//	        return nil, watchcheck.DatasourceUnavailable(err)
//	    }
//	    return &watchcheck.Result{State: watchcheck.StateOK, Summary: "reachable"}, nil
//	}
//
// For a complete program, see the _example/ directory.
package watchcheck
