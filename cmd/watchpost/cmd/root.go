package cmd

import (
	"fmt"
	"os"

	"github.com/pitkley/watchpost/cmd/watchpost/cmd/hostnames"
	"github.com/pitkley/watchpost/cmd/watchpost/cmd/listchecks"
	"github.com/pitkley/watchpost/cmd/watchpost/cmd/runchecks"
	"github.com/pitkley/watchpost/cmd/watchpost/cmd/serve"
	"github.com/pitkley/watchpost/cmd/watchpost/cmd/verifyconfig"
	"github.com/pitkley/watchpost/cmd/watchpost/globflags"
	"github.com/pitkley/watchpost/internal/util"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:              "watchpost",
	Short:            "turns registered checks into a Checkmk piggyback feed",
	Version:          "0.0.1",
	TraverseChildren: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cmd.ValidateFlagGroups(); err != nil {
			return err
		}
		if err := cmd.ValidateRequiredFlags(); err != nil {
			return err
		}

		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return nil
	},
}

func Execute() {
	ctx, cancel := util.CtxWithShutdown()
	defer cancel()

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.SilenceErrors = false
		cmd.SilenceUsage = false

		return err
	})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println()
		fmt.Printf("❌❌❌ Error occurred: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(
			&globflags.ConfigPath,
			"config",
			"c",
			"",
			"path to the watchpost config. If not specified, the built-in defaults are used.",
		)

	rootCmd.AddCommand(serve.ServeCmd)
	rootCmd.AddCommand(runchecks.RunChecksCmd)
	rootCmd.AddCommand(listchecks.ListChecksCmd)
	rootCmd.AddCommand(verifyconfig.VerifyConfigCmd)
	rootCmd.AddCommand(hostnames.HostnamesCmd)
}
