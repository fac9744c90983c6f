package watchcheck

// NoPiggybackHost routes results to the host the agent itself runs on: the
// renderer omits the piggyback framing for results carrying it.
const NoPiggybackHost = "no-piggyback"

// HostnameStrategy resolves the piggyback host for the results of a check.
// The resolved string may contain the template placeholders understood by
// the engine ({service_name}, {env_name}, {env_hostname}, {meta.<key>}).
type HostnameStrategy interface {
	Hostname(c *Check, targetEnv *Environment) (string, error)
}

// StaticHostname routes every result of the check to one fixed host.
type StaticHostname string

func (s StaticHostname) Hostname(*Check, *Environment) (string, error) {
	return string(s), nil
}

// HostnameTemplate is a template with placeholders, rendered per target
// environment.
type HostnameTemplate string

func (t HostnameTemplate) Hostname(*Check, *Environment) (string, error) {
	return string(t), nil
}

// HostnameFunc computes the host with user code.
type HostnameFunc func(c *Check, targetEnv *Environment) (string, error)

func (f HostnameFunc) Hostname(c *Check, targetEnv *Environment) (string, error) {
	return f(c, targetEnv)
}

// NoPiggyback suppresses piggyback framing for every result of the check.
func NoPiggyback() HostnameStrategy {
	return StaticHostname(NoPiggybackHost)
}
