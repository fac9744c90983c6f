package runchecks

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pitkley/watchpost/internal/cmdutil"
	"github.com/pitkley/watchpost/internal/engine"
	"github.com/pitkley/watchpost/internal/executor"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	noCache        bool
	filterPrefix   string
	filterContains string
	syncOnly       bool
	asyncOnly      bool
)

var RunChecksCmd = &cobra.Command{
	Use:   "run-checks",
	Short: "runs one poll over the registered checks and prints the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var extra []fx.Option
		if noCache {
			extra = append(extra, fx.Decorate(func(c engine.Config) engine.Config {
				c.DisableCache = true
				return c
			}))
		}

		eng, app, err := cmdutil.ExtractEngine(ctx, false, extra...)
		if err != nil {
			return err
		}
		defer cmdutil.StopApp(app)

		filter := engine.Filter{Prefix: filterPrefix, Contains: filterContains}
		if syncOnly {
			mode := executor.ModeSync
			filter.Mode = &mode
		}
		if asyncOnly {
			mode := executor.ModeAsync
			filter.Mode = &mode
		}

		results, err := eng.CollectFiltered(ctx, filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "State\tEnvironment\tService\tSummary")
		for _, res := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.State, res.EnvironmentName, res.ServiceName, res.Summary)
		}

		return w.Flush()
	},
}

func init() {
	RunChecksCmd.Flags().BoolVar(&noCache, "no-cache", false, "run every check fresh, ignoring cached results")
	RunChecksCmd.Flags().StringVar(&filterPrefix, "filter-prefix", "", "only run checks whose id starts with the given string")
	RunChecksCmd.Flags().StringVar(&filterContains, "filter-contains", "", "only run checks whose id contains the given string")
	RunChecksCmd.Flags().BoolVar(&syncOnly, "sync", false, "only run checks registered for the sync worker pool")
	RunChecksCmd.Flags().BoolVar(&asyncOnly, "async", false, "only run checks registered as async")
	RunChecksCmd.MarkFlagsMutuallyExclusive("sync", "async")
}
