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

const userAgent = "watchpost-probe/0.0.1"

// Register wires the website datasources and checks. Call it from main
// before watchpost.Execute.
func Register() {
	watchpost.RegisterDatasource(watchpost.NewDatasource(newConnector))
	watchpost.RegisterDatasource(watchpost.NewDatasourceFactory(newConnectorFactory))

	watchpost.RegisterCheck(watchpost.Spec{
		Name:          "website-reachable",
		Service:       "Website Reachability",
		ServiceLabels: map[string]string{"team": "frontend"},
		Environments:  []string{"prod", "staging"},
		CacheFor:      "90s",
		Timeout:       "15s",
		Func:          checkReachable,
	})

	watchpost.RegisterCheck(watchpost.Spec{
		Name:         "user-journey",
		Service:      "User Journey",
		Environments: []string{"prod"},
		CacheFor:     "5m",
		Timeout:      "1m",
		FactoryParams: map[int]watchpost.FactoryParam{
			2: watchpost.FromFactory[*ConnectorFactory]("journey"),
		},
		// The journey spans the web and api machines; a total failure
		// pages whoever watches either of them.
		ErrorHandlers: []watchpost.ErrorHandler{
			watchpost.ExpandByHostname("prod-web-01", "prod-api-01"),
		},
		Func: checkJourney,
	})
}

func newConnector(_ context.Context) (*httpconn.Connector, error) {
	return httpconn.New("website", httpconn.WithUserAgent(userAgent)), nil
}

func checkReachable(ctx context.Context, env *watchpost.Environment, conn *httpconn.Connector) (*watchpost.Result, error) {
	base := env.Meta()["base_url"]
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build probe request")
	}

	start := time.Now()
	rsp, err := conn.Client().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot reach %s", base)
	}
	defer rsp.Body.Close()
	_, _ = io.Copy(io.Discard, rsp.Body)
	elapsed := time.Since(start)

	if rsp.StatusCode != http.StatusOK {
		return &watchpost.Result{
			State:   watchpost.StateCrit,
			Summary: fmt.Sprintf("%s answered %d", base, rsp.StatusCode),
		}, nil
	}

	levels := watchpost.Thresholds{Warn: 0.5, Crit: 2}
	seconds := elapsed.Seconds()

	return &watchpost.Result{
		State:   levels.Classify(seconds),
		Summary: fmt.Sprintf("responded in %s", elapsed.Round(time.Millisecond)),
		Metrics: []watchpost.Metric{{
			Name:       "response_time",
			Value:      seconds,
			Levels:     &levels,
			Boundaries: &watchpost.Boundaries{Min: 0, Max: 10},
			Unit:       "s",
		}},
	}, nil
}
