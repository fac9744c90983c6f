// Package environments declares the deployments this program monitors.
// Checks reference them by name; strategies reference them by value.
package environments

import "github.com/pitkley/watchpost"

var (
	// Prod is the customer-facing deployment.
	Prod = watchpost.NewEnvironment("prod",
		watchpost.WithHostname("prod-web-01"),
		watchpost.WithMeta("base_url", "https://www.example.com"),
		watchpost.WithMeta("queue_addr", "redis-prod.internal:6379"),
	)

	// Staging runs one release ahead of prod.
	Staging = watchpost.NewEnvironment("staging",
		watchpost.WithHostname("staging-web-01"),
		watchpost.WithMeta("base_url", "https://staging.example.com"),
		watchpost.WithMeta("queue_addr", "redis-staging.internal:6379"),
	)
)
