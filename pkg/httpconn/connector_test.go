package httpconn

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    req,
	}
}

func scrape(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)

	return buf.String()
}

func TestConnector_ClientsShareTransportButNotJars(t *testing.T) {
	c := New("share-test")

	first, second := c.Client(), c.Client()
	require.Same(t, first.Transport, second.Transport)
	require.NotSame(t, first.Jar, second.Jar)
	require.Equal(t, defaultTimeout, first.Timeout)
}

func TestConnector_WithTimeoutZeroDisablesTimeout(t *testing.T) {
	c := New("no-timeout", WithTimeout(0))

	require.Zero(t, c.Client().Timeout)
}

func TestConnector_RequestDurationsAreMeasured(t *testing.T) {
	inner := rtFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse(req), nil
	})
	c := New("duration-test", WithTransport(inner))

	rsp, err := c.Client().Get("http://svc.internal/health")
	require.NoError(t, err)
	require.NoError(t, rsp.Body.Close())
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	scraped := scrape(t)
	require.Contains(t, scraped, "watchpost_http_request_duration_seconds")
	require.Contains(t, scraped, `client="duration-test"`)
	require.Contains(t, scraped, `status="200"`)
}

func TestConnector_TransportErrorsAreCounted(t *testing.T) {
	inner := rtFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	c := New("errors-test", WithTransport(inner))

	_, err := c.Client().Get("http://svc.internal/")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")

	scraped := scrape(t)
	require.Contains(t, scraped, "watchpost_http_request_errors_total")
	require.Contains(t, scraped, `client="errors-test"`)
}

func TestConnector_UserAgentOnlyFillsBlank(t *testing.T) {
	var seen []string
	inner := rtFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req.Header.Get("User-Agent"))

		return okResponse(req), nil
	})
	c := New("ua-test", WithTransport(inner), WithUserAgent("watchpost-probe/1.0"))
	client := c.Client()

	rsp, err := client.Get("http://svc.internal/")
	require.NoError(t, err)
	require.NoError(t, rsp.Body.Close())

	req, err := http.NewRequest(http.MethodGet, "http://svc.internal/", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom-agent")
	rsp, err = client.Do(req)
	require.NoError(t, err)
	require.NoError(t, rsp.Body.Close())

	require.Equal(t, []string{"watchpost-probe/1.0", "custom-agent"}, seen)
}
