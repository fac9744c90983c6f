package watchcheck

import (
	"maps"
	"slices"

	"github.com/pkg/errors"
)

// Environment is a named logical deployment, both as a target checks observe
// and as the place the engine itself runs in. Two environments are the same
// iff their names are equal; the registry enforces name uniqueness.
type Environment struct {
	name     string
	hostname string
	meta     map[string]string
}

type EnvironmentOpt interface {
	apply(*Environment)
}

type environmentOptFunc func(*Environment)

func (f environmentOptFunc) apply(e *Environment) { f(e) }

// WithHostname sets the default piggyback host for results produced against
// this environment.
func WithHostname(hostname string) EnvironmentOpt {
	return environmentOptFunc(func(e *Environment) { e.hostname = hostname })
}

// WithMeta attaches a metadata entry, available to hostname templates as
// {meta.<key>}.
func WithMeta(key, value string) EnvironmentOpt {
	return environmentOptFunc(func(e *Environment) {
		if e.meta == nil {
			e.meta = make(map[string]string)
		}
		e.meta[key] = value
	})
}

// NewEnvironment creates an immutable environment. Declare environments as
// package-level values so checks and the RegisterEnvironments call share
// them.
func NewEnvironment(name string, opts ...EnvironmentOpt) *Environment {
	e := &Environment{name: name}
	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Environment) Name() string { return e.name }

// Hostname is the default piggyback host of the environment, empty when it
// has none.
func (e *Environment) Hostname() string { return e.hostname }

// Meta returns a copy of the environment metadata.
func (e *Environment) Meta() map[string]string {
	return maps.Clone(e.meta)
}

// Environments is the registry of every environment known to a program.
type Environments struct {
	order  []*Environment
	byName map[string]*Environment
}

// NewEnvironments builds the registry, rejecting empty and duplicate names.
func NewEnvironments(envs ...*Environment) (*Environments, error) {
	if len(envs) == 0 {
		return nil, errors.Wrap(ErrInvalidConfiguration, "at least one environment must be registered")
	}

	byName := make(map[string]*Environment, len(envs))
	for _, env := range envs {
		if env == nil {
			return nil, errors.Wrap(ErrInvalidConfiguration, "environments must not be nil")
		}
		if env.Name() == "" {
			return nil, errors.Wrap(ErrInvalidConfiguration, "environment names must not be empty")
		}
		if _, exists := byName[env.Name()]; exists {
			return nil, errors.Wrapf(ErrInvalidConfiguration, "environment %q registered twice", env.Name())
		}

		byName[env.Name()] = env
	}

	return &Environments{
		order:  slices.Clone(envs),
		byName: byName,
	}, nil
}

func (e *Environments) Get(name string) (*Environment, bool) {
	env, ok := e.byName[name]
	return env, ok
}

func (e *Environments) Has(name string) bool {
	_, ok := e.byName[name]
	return ok
}

// All returns the environments in declaration order.
func (e *Environments) All() []*Environment {
	return slices.Clone(e.order)
}

// Select resolves names into environments, erroring on the first unknown
// one.
func (e *Environments) Select(names ...string) ([]*Environment, error) {
	out := make([]*Environment, 0, len(names))
	for _, name := range names {
		env, ok := e.byName[name]
		if !ok {
			return nil, errors.Errorf("environment %q is not registered", name)
		}
		out = append(out, env)
	}

	return out, nil
}
