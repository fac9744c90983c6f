// Package hostname turns check results into the piggyback host names the
// renderer groups by. Candidates come from a fixed hierarchy (result
// override, check strategy, environment default, engine default, synthesized
// fallback), are template-expanded against the check and target environment,
// and are optionally coerced into Checkmk-safe form.
package hostname

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/pitkley/watchpost/pkg/watchcheck"
)

// ErrEmpty reports that every candidate in the hierarchy expanded to an
// empty host name. With coercion enabled the resolver falls back to the
// synthesized default instead.
var ErrEmpty = errors.New("hostname resolved to an empty string")

// synthesized is the last-resort candidate. Service and environment names
// are validated non-empty at registration time, so it always expands to
// something.
const synthesized = "{service_name}-{env_name}"

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z0-9_.-]+\}`)

// Resolver applies the hostname hierarchy for one engine configuration.
type Resolver struct {
	defaultHostname string
	coerce          bool
}

func NewResolver(defaultHostname string, coerce bool) *Resolver {
	return &Resolver{defaultHostname: defaultHostname, coerce: coerce}
}

// Resolve determines the piggyback host for one result of c against
// targetEnv. override carries the per-result candidate (a hostname override
// set by the check or by an error handler) and wins over everything else
// when non-empty. Strategy errors abort resolution; the caller surfaces them
// on the affected result.
func (r *Resolver) Resolve(c *watchcheck.Check, targetEnv *watchcheck.Environment, override string) (string, error) {
	candidate := override
	if candidate == "" {
		if strategy := c.HostnameStrategy(); strategy != nil {
			resolved, err := strategy.Hostname(c, targetEnv)
			if err != nil {
				return "", errors.Wrapf(err, "hostname strategy of check %q failed for environment %q", c.ID(), targetEnv.Name())
			}
			candidate = resolved
		}
	}
	if candidate == "" {
		candidate = targetEnv.Hostname()
	}
	if candidate == "" {
		candidate = r.defaultHostname
	}
	if candidate == "" {
		candidate = synthesized
	}
	if candidate == watchcheck.NoPiggybackHost {
		return watchcheck.NoPiggybackHost, nil
	}

	expanded := expand(candidate, c, targetEnv)
	if expanded == watchcheck.NoPiggybackHost {
		return watchcheck.NoPiggybackHost, nil
	}

	if !r.coerce {
		if expanded == "" {
			return "", errors.Wrapf(ErrEmpty, "check %q in environment %q", c.ID(), targetEnv.Name())
		}
		return expanded, nil
	}

	coerced := Coerce(expanded)
	if coerced == "" {
		coerced = Coerce(expand(synthesized, c, targetEnv))
	}
	if coerced == "" {
		return "", errors.Wrapf(ErrEmpty, "check %q in environment %q", c.ID(), targetEnv.Name())
	}
	return coerced, nil
}

// expand substitutes the {service_name}, {env_name}, {env_hostname} and
// {meta.<key>} placeholders. Placeholders the context does not know stay in
// the string verbatim.
func expand(tmpl string, c *watchcheck.Check, targetEnv *watchcheck.Environment) string {
	if !strings.ContainsRune(tmpl, '{') {
		return tmpl
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		switch name := m[1 : len(m)-1]; name {
		case "service_name":
			return c.Service()
		case "env_name":
			return targetEnv.Name()
		case "env_hostname":
			return targetEnv.Hostname()
		default:
			if key, ok := strings.CutPrefix(name, "meta."); ok {
				if value, ok := targetEnv.Meta()[key]; ok {
					return value
				}
			}
			return m
		}
	})
}
