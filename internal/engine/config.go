package engine

// Config controls one engine instance.
type Config struct {
	// ExecutionEnvironment names the environment this process runs in.
	// Scheduling strategies compare it against each check's target
	// environments. It must name a registered environment.
	ExecutionEnvironment string `json:"execution_environment" yaml:"execution_environment"`

	// DefaultHostname is the engine-level candidate in the hostname
	// hierarchy, consulted when neither the result, the check nor the
	// target environment provide one. Template placeholders are allowed.
	DefaultHostname string `json:"default_hostname" yaml:"default_hostname"`

	// DisableHostnameCoercion emits resolved hostnames as-is instead of
	// rewriting them into Checkmk-safe RFC 1123 form.
	DisableHostnameCoercion bool `json:"disable_hostname_coercion" yaml:"disable_hostname_coercion"`

	// DisableCache turns every cache lookup into a miss and every cache
	// write into a no-op, forcing fresh executions.
	DisableCache bool `json:"disable_cache" yaml:"disable_cache"`

	// CacheFailures also caches results of runs in which the check threw.
	// Off by default: a failed run is usually worth retrying on the next
	// poll.
	CacheFailures bool `json:"cache_failures" yaml:"cache_failures"`
}
