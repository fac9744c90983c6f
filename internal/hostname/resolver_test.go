package hostname

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pitkley/watchpost/pkg/watchcheck"
)

func newCheck(t *testing.T, spec watchcheck.Spec) *watchcheck.Check {
	t.Helper()

	if spec.Service == "" {
		spec.Service = "web"
	}
	if spec.Environments == nil {
		spec.Environments = []string{"prod"}
	}
	if spec.Func == nil {
		spec.Func = func(ctx context.Context) (*watchcheck.Result, error) {
			return &watchcheck.Result{State: watchcheck.StateOK, Summary: "fine"}, nil
		}
	}

	c, err := watchcheck.New(spec)
	require.NoError(t, err)
	return c
}

func TestResolve_OverrideWins(t *testing.T) {
	r := NewResolver("engine-default", true)
	c := newCheck(t, watchcheck.Spec{Hostname: watchcheck.StaticHostname("from-check")})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithHostname("from-env"))

	host, err := r.Resolve(c, env, "from-result")
	require.NoError(t, err)
	require.Equal(t, "from-result", host)
}

func TestResolve_CheckStrategyBeatsEnvironment(t *testing.T) {
	r := NewResolver("engine-default", true)
	c := newCheck(t, watchcheck.Spec{Hostname: watchcheck.StaticHostname("from-check")})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithHostname("from-env"))

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "from-check", host)
}

func TestResolve_EnvironmentBeatsEngineDefault(t *testing.T) {
	r := NewResolver("engine-default", true)
	c := newCheck(t, watchcheck.Spec{})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithHostname("from-env"))

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "from-env", host)
}

func TestResolve_EngineDefaultBeatsSynthesized(t *testing.T) {
	r := NewResolver("engine-default", true)
	c := newCheck(t, watchcheck.Spec{})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "engine-default", host)
}

func TestResolve_SynthesizedFallback(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{Service: "My Service"})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "my-service-prod", host)
}

func TestResolve_ExpandsTemplatePlaceholders(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{
		Service:  "api",
		Hostname: watchcheck.HostnameTemplate("{service_name}.{env_name}.{meta.dc}"),
	})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithMeta("dc", "eu1"))

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "api.prod.eu1", host)
}

func TestResolve_ExpandsEnvHostnamePlaceholder(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{
		Hostname: watchcheck.HostnameTemplate("db-{env_hostname}"),
	})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithHostname("node1.example.com"))

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "db-node1.example.com", host)
}

func TestResolve_ExpandsOverride(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{Service: "api"})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, "{service_name}-extra")
	require.NoError(t, err)
	require.Equal(t, "api-extra", host)
}

func TestResolve_UnknownPlaceholderStaysVerbatim(t *testing.T) {
	r := NewResolver("", false)
	c := newCheck(t, watchcheck.Spec{
		Hostname: watchcheck.HostnameTemplate("host-{bogus}-{meta.missing}"),
	})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "host-{bogus}-{meta.missing}", host)
}

func TestResolve_HostnameFunc(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{
		Hostname: watchcheck.HostnameFunc(func(c *watchcheck.Check, targetEnv *watchcheck.Environment) (string, error) {
			return targetEnv.Name() + "-" + c.Service(), nil
		}),
	})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "prod-web", host)
}

func TestResolve_StrategyErrorPropagates(t *testing.T) {
	r := NewResolver("", true)
	boom := errors.New("lookup failed")
	c := newCheck(t, watchcheck.Spec{
		Hostname: watchcheck.HostnameFunc(func(*watchcheck.Check, *watchcheck.Environment) (string, error) {
			return "", boom
		}),
	})
	env := watchcheck.NewEnvironment("prod")

	_, err := r.Resolve(c, env, "")
	require.ErrorIs(t, err, boom)
}

func TestResolve_NoPiggybackSkipsCoercion(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{Hostname: watchcheck.NoPiggyback()})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, watchcheck.NoPiggybackHost, host)
}

func TestResolve_NoPiggybackOverride(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, watchcheck.NoPiggybackHost)
	require.NoError(t, err)
	require.Equal(t, watchcheck.NoPiggybackHost, host)
}

func TestResolve_CoercionApplied(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithHostname("API Node_1.Example.COM"))

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "api-node-1.example.com", host)
}

func TestResolve_CoercionDisabledKeepsRawValue(t *testing.T) {
	r := NewResolver("", false)
	c := newCheck(t, watchcheck.Spec{})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithHostname("API Node_1"))

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "API Node_1", host)
}

func TestResolve_EmptyCoercionFallsBackToSynthesized(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{Hostname: watchcheck.StaticHostname("---")})
	env := watchcheck.NewEnvironment("prod")

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "web-prod", host)
}

func TestResolve_EmptyWithoutCoercionErrors(t *testing.T) {
	r := NewResolver("", false)
	c := newCheck(t, watchcheck.Spec{
		// expands to the environment hostname, which is unset
		Hostname: watchcheck.HostnameTemplate("{env_hostname}"),
	})
	env := watchcheck.NewEnvironment("prod")

	_, err := r.Resolve(c, env, "")
	require.ErrorIs(t, err, ErrEmpty)
}

func TestResolve_EmptyStrategyResultFallsThrough(t *testing.T) {
	r := NewResolver("", true)
	c := newCheck(t, watchcheck.Spec{
		Hostname: watchcheck.HostnameFunc(func(*watchcheck.Check, *watchcheck.Environment) (string, error) {
			return "", nil
		}),
	})
	env := watchcheck.NewEnvironment("prod", watchcheck.WithHostname("from-env"))

	host, err := r.Resolve(c, env, "")
	require.NoError(t, err)
	require.Equal(t, "from-env", host)
}
