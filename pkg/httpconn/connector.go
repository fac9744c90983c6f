// Package httpconn hands out preconfigured HTTP clients for checks
// that probe web services. All clients of a Connector share one pooled,
// metrics-instrumented transport; construct one Connector per probed
// service and register it as a datasource.
package httpconn

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

const (
	defaultTimeout = 5 * time.Second

	// A connector talks to a single host in practice, so the total and
	// per-host pool limits carry the same number.
	poolSize = 30
)

// Connector is a factory for HTTP clients sharing one instrumented
// transport. Request latencies and transport errors surface as
// watchpost_http_* metrics, labeled with the connector name.
type Connector struct {
	t       http.RoundTripper
	timeout time.Duration
}

// New builds a connector. The name ends up as the client label on every
// metric the transport emits.
func New(name string, opts ...Option) *Connector {
	o := defaultOpts()
	for _, opt := range opts {
		opt.apply(&o)
	}

	return &Connector{
		t: &metricsRoundTripper{
			inner:     o.transport,
			name:      name,
			userAgent: o.userAgent,
		},
		timeout: o.timeout,
	}
}

// Client returns a fresh client on the shared transport. Clients are
// cheap to create, the connection pool lives in the transport. Each
// client gets its own cookie jar, so sessions never leak between runs.
func (c *Connector) Client() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic("unreachable: cannot create cookie jar")
	}

	return &http.Client{
		Transport: c.t,
		Jar:       jar,
		Timeout:   c.timeout,
	}
}

type metricsRoundTripper struct {
	inner     http.RoundTripper
	name      string
	userAgent string
}

func (t *metricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	target := req.URL.Host
	method := req.Method
	reqStart := time.Now()

	rsp, err := t.inner.RoundTrip(req)
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(
			`watchpost_http_request_errors_total{method=%q, target=%q, client=%q}`,
			method, target, t.name,
		)).Inc()

		return nil, err
	}

	metrics.GetOrCreateHistogram(fmt.Sprintf(
		`watchpost_http_request_duration_seconds{method=%q, target=%q, client=%q, status=%q}`,
		method, target, t.name, strconv.Itoa(rsp.StatusCode),
	)).UpdateDuration(reqStart)

	return rsp, nil
}
