package website

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pitkley/watchpost"
	"github.com/pitkley/watchpost/pkg/httpconn"

	"github.com/pkg/errors"
)

// ConnectorFactory hands out separately labeled connectors, so the
// request metrics of different checks do not blur together.
type ConnectorFactory struct{}

func newConnectorFactory(_ context.Context) (*ConnectorFactory, error) {
	return &ConnectorFactory{}, nil
}

func (f *ConnectorFactory) CreateDatasource(_ context.Context, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("expected one argument, got %d", len(args))
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, errors.Errorf("expected a string name, got %T", args[0])
	}

	return httpconn.New("website-"+name, httpconn.WithUserAgent(userAgent)), nil
}

var journeyPages = []struct{ name, path string }{
	{"home", "/"},
	{"login", "/login"},
	{"api health", "/api/health"},
}

func checkJourney(ctx context.Context, env *watchpost.Environment, conn *httpconn.Connector) (*watchpost.Builder, error) {
	client := conn.Client()
	base := env.Meta()["base_url"]

	b := watchpost.NewBuilder(
		"all pages answer",
		"some pages are broken",
	)

	start := time.Now()
	for _, page := range journeyPages {
		if err := probePage(ctx, client, base+page.path); err != nil {
			b.Crit(fmt.Sprintf("%s: %s", page.name, err))
			continue
		}
		b.OK(page.name)
	}

	b.AddMetric(watchpost.Metric{
		Name:  "journey_time",
		Value: time.Since(start).Seconds(),
		Unit:  "s",
	})

	return b, nil
}

func probePage(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "cannot build request")
	}

	rsp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	_, _ = io.Copy(io.Discard, rsp.Body)

	if rsp.StatusCode != http.StatusOK {
		return errors.Errorf("status %d", rsp.StatusCode)
	}

	return nil
}
