package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/pitkley/watchpost"
	"github.com/pitkley/watchpost/_example/environments"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const jobsKey = "jobs:pending"

// Register wires the queue datasource and check. The queue is only
// reachable from inside prod, which the datasource strategy encodes.
func Register() {
	watchpost.RegisterDatasource(watchpost.NewDatasource(
		newQueueClient,
		watchpost.WithDatasourceStrategies(
			watchpost.MustRunInExecutionEnvironments(environments.Prod),
		),
	))

	watchpost.RegisterCheck(watchpost.Spec{
		Name:         "job-queue",
		Service:      "Job Queue",
		Environments: []string{"prod"},
		CacheFor:     "5m",
		Timeout:      "30s",
		// The probe crosses a VPN hop that can stall for seconds.
		Async: true,
		Func:  checkQueue,
	})
}

func newQueueClient(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: environments.Prod.Meta()["queue_addr"],
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, watchpost.DatasourceUnavailable(errors.Wrap(err, "cannot reach the job queue"))
	}

	return client, nil
}

func checkQueue(ctx context.Context, client *redis.Client) (*watchpost.Result, error) {
	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "queue did not answer a ping")
	}
	pingTime := time.Since(start)

	depth, err := client.LLen(ctx, jobsKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read the job backlog")
	}

	levels := watchpost.Thresholds{Warn: 1_000, Crit: 10_000}

	return &watchpost.Result{
		State:   levels.Classify(float64(depth)),
		Summary: fmt.Sprintf("%d jobs queued", depth),
		Metrics: []watchpost.Metric{
			{Name: "queue_depth", Value: float64(depth), Levels: &levels},
			{Name: "ping_time", Value: pingTime.Seconds(), Unit: "s"},
		},
	}, nil
}
