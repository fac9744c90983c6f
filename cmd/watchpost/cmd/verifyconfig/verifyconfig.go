package verifyconfig

import (
	"fmt"

	"github.com/pitkley/watchpost/internal/cmdutil"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

var dump bool

var VerifyConfigCmd = &cobra.Command{
	Use:   "verify-check-configuration",
	Short: "validates every registered check, datasource and strategy without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		// startup already performs the full validation: spec checks,
		// datasource binding resolution and strategy conflict detection
		eng, app, err := cmdutil.ExtractEngine(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer cmdutil.StopApp(app)

		checks := eng.Checks()
		fmt.Printf(
			"configuration OK: %d checks registered, execution environment %q\n",
			len(checks),
			eng.ExecutionEnvironment().Name(),
		)

		if dump {
			spew.Dump(checks)
		}

		return nil
	},
}

func init() {
	VerifyConfigCmd.Flags().BoolVar(&dump, "dump", false, "dump the validated check descriptors")
}
