package httpconn

import (
	"net/http"
	"time"
)

type connectorOpts struct {
	transport http.RoundTripper
	timeout   time.Duration
	userAgent string
}

func defaultOpts() connectorOpts {
	return connectorOpts{
		transport: &http.Transport{
			MaxIdleConns:        poolSize,
			MaxIdleConnsPerHost: poolSize,
			MaxConnsPerHost:     poolSize,
			IdleConnTimeout:     5 * time.Minute,
		},
		timeout: defaultTimeout,
	}
}

type Option interface {
	apply(o *connectorOpts)
}

type optionFunc func(o *connectorOpts)

func (f optionFunc) apply(o *connectorOpts) {
	f(o)
}

// WithTimeout overrides the per-request client timeout. Zero disables
// the timeout entirely.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(o *connectorOpts) { o.timeout = d })
}

// WithTransport swaps the pooled transport underneath the
// instrumentation.
func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(o *connectorOpts) { o.transport = rt })
}

// WithUserAgent sets the User-Agent header on requests that carry none.
func WithUserAgent(ua string) Option {
	return optionFunc(func(o *connectorOpts) { o.userAgent = ua })
}
