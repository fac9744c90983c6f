package watchcheck

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// DatasourceFactory produces datasource instances parameterized by
// per-check arguments. A check requests a factory product through
// FromFactory, and every distinct argument tuple yields its own
// memoized instance.
type DatasourceFactory interface {
	CreateDatasource(ctx context.Context, args ...any) (any, error)
}

// DatasourceRegistration describes a single datasource or datasource
// factory known to the engine. Register instances through
// RegisterDatasource.
type DatasourceRegistration struct {
	typ        reflect.Type
	factory    bool
	construct  func(ctx context.Context) (any, error)
	strategies []SchedulingStrategy
}

// DatasourceOpt customizes a datasource registration.
type DatasourceOpt interface {
	apply(*DatasourceRegistration)
}

type datasourceOptFunc func(*DatasourceRegistration)

func (f datasourceOptFunc) apply(r *DatasourceRegistration) {
	f(r)
}

// WithDatasourceStrategies attaches scheduling strategies to the
// registration. Every check binding this datasource inherits them in
// addition to its own.
func WithDatasourceStrategies(strategies ...SchedulingStrategy) DatasourceOpt {
	return datasourceOptFunc(func(r *DatasourceRegistration) {
		r.strategies = append(r.strategies, strategies...)
	})
}

// NewDatasource registers a constructor for the concrete type T. The
// constructor runs at most once per process, the first time a check
// binds T.
func NewDatasource[T any](construct func(ctx context.Context) (T, error), opts ...DatasourceOpt) *DatasourceRegistration {
	r := &DatasourceRegistration{
		typ: reflect.TypeOf((*T)(nil)).Elem(),
		construct: func(ctx context.Context) (any, error) {
			return construct(ctx)
		},
	}
	for _, opt := range opts {
		opt.apply(r)
	}

	return r
}

// NewDatasourceFactory registers a constructor for the factory type F.
// The factory itself is constructed lazily and memoized like a plain
// datasource; its products are memoized per argument tuple.
func NewDatasourceFactory[F DatasourceFactory](construct func(ctx context.Context) (F, error), opts ...DatasourceOpt) *DatasourceRegistration {
	r := &DatasourceRegistration{
		typ:     reflect.TypeOf((*F)(nil)).Elem(),
		factory: true,
		construct: func(ctx context.Context) (any, error) {
			return construct(ctx)
		},
	}
	for _, opt := range opts {
		opt.apply(r)
	}

	return r
}

// FactoryParam binds one check parameter to the product of a registered
// datasource factory, called with the given arguments.
type FactoryParam struct {
	factory reflect.Type
	args    []any
}

// FromFactory declares that a check parameter is produced by the
// factory F invoked with args. Wire it to a parameter index through
// Spec.FactoryParams.
func FromFactory[F DatasourceFactory](args ...any) FactoryParam {
	return FactoryParam{
		factory: reflect.TypeOf((*F)(nil)).Elem(),
		args:    args,
	}
}

type instanceKey struct {
	typ         reflect.Type
	fingerprint string
}

type instanceEntry struct {
	mu  sync.Mutex
	val any
	ok  bool
}

// DatasourceRegistry resolves check parameter types to memoized
// datasource instances. Lookups are type-keyed; factory products are
// additionally keyed by their argument fingerprint.
type DatasourceRegistry struct {
	direct    map[reflect.Type]*DatasourceRegistration
	factories map[reflect.Type]*DatasourceRegistration

	mu        sync.Mutex
	instances map[instanceKey]*instanceEntry
}

// NewDatasourceRegistry indexes the given registrations by type.
// Registering the same type twice is a configuration error; all
// conflicts are reported at once.
func NewDatasourceRegistry(registrations []*DatasourceRegistration) (*DatasourceRegistry, error) {
	reg := &DatasourceRegistry{
		direct:    make(map[reflect.Type]*DatasourceRegistration),
		factories: make(map[reflect.Type]*DatasourceRegistration),
		instances: make(map[instanceKey]*instanceEntry),
	}

	var merr *multierror.Error
	for _, r := range registrations {
		if r == nil {
			merr = multierror.Append(merr, errors.Wrap(ErrInvalidConfiguration, "nil datasource registration"))
			continue
		}

		target := reg.direct
		if r.factory {
			target = reg.factories
		}
		if _, exists := target[r.typ]; exists {
			merr = multierror.Append(merr,
				errors.Wrapf(ErrInvalidConfiguration, "datasource type %s registered twice", r.typ))
			continue
		}
		target[r.typ] = r
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return reg, nil
}

// HasType reports whether a plain datasource for typ is registered.
func (reg *DatasourceRegistry) HasType(typ reflect.Type) bool {
	_, ok := reg.direct[typ]
	return ok
}

// HasFactory reports whether a datasource factory of type typ is registered.
func (reg *DatasourceRegistry) HasFactory(typ reflect.Type) bool {
	_, ok := reg.factories[typ]
	return ok
}

// StrategiesForType returns the scheduling strategies attached to the
// datasource registered for typ.
func (reg *DatasourceRegistry) StrategiesForType(typ reflect.Type) []SchedulingStrategy {
	r, ok := reg.direct[typ]
	if !ok {
		return nil
	}

	return r.strategies
}

// StrategiesForFactory returns the scheduling strategies attached to
// the factory registered for typ.
func (reg *DatasourceRegistry) StrategiesForFactory(typ reflect.Type) []SchedulingStrategy {
	r, ok := reg.factories[typ]
	if !ok {
		return nil
	}

	return r.strategies
}

// Resolve returns the memoized instance for typ, constructing it on
// first use. Construction failures are returned but not memoized, so a
// later resolve retries.
func (reg *DatasourceRegistry) Resolve(ctx context.Context, typ reflect.Type) (any, error) {
	r, ok := reg.direct[typ]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "no datasource registered for type %s", typ)
	}

	return reg.instantiate(ctx, instanceKey{typ: typ}, func(ctx context.Context) (any, error) {
		return r.construct(ctx)
	})
}

// ResolveFromFactory returns the memoized product of the factory
// identified by param, constructing the factory and the product on
// first use.
func (reg *DatasourceRegistry) ResolveFromFactory(ctx context.Context, param FactoryParam) (any, error) {
	r, ok := reg.factories[param.factory]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "no datasource factory registered for type %s", param.factory)
	}

	factory, err := reg.instantiate(ctx, instanceKey{typ: param.factory}, func(ctx context.Context) (any, error) {
		return r.construct(ctx)
	})
	if err != nil {
		return nil, err
	}

	key := instanceKey{typ: param.factory, fingerprint: fingerprintArgs(param.args)}

	return reg.instantiate(ctx, key, func(ctx context.Context) (any, error) {
		f, ok := factory.(DatasourceFactory)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidConfiguration,
				"registered factory %s does not implement DatasourceFactory", param.factory)
		}

		return f.CreateDatasource(ctx, param.args...)
	})
}

func (reg *DatasourceRegistry) instantiate(ctx context.Context, key instanceKey, construct func(ctx context.Context) (any, error)) (any, error) {
	reg.mu.Lock()
	entry, ok := reg.instances[key]
	if !ok {
		entry = &instanceEntry{}
		reg.instances[key] = entry
	}
	reg.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.ok {
		return entry.val, nil
	}

	val, err := construct(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "constructing datasource %s", key.typ)
	}

	entry.val = val
	entry.ok = true

	return val, nil
}

// Close releases every constructed instance that implements io.Closer.
func (reg *DatasourceRegistry) Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var merr *multierror.Error
	for key, entry := range reg.instances {
		entry.mu.Lock()
		if entry.ok {
			if closer, ok := entry.val.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					merr = multierror.Append(merr, errors.Wrapf(err, "closing datasource %s", key.typ))
				}
			}
		}
		entry.mu.Unlock()
	}

	return merr.ErrorOrNil()
}

func fingerprintArgs(args []any) string {
	return fmt.Sprintf("%#v", args)
}
