package hostnames

import (
	"github.com/pitkley/watchpost/internal/cmdutil"
	"github.com/pitkley/watchpost/internal/util"

	"github.com/spf13/cobra"
)

var HostnamesCmd = &cobra.Command{
	Use:   "get-check-hostnames",
	Short: "prints the piggyback hostname every (check, environment) pair resolves to",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, app, err := cmdutil.ExtractEngine(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer cmdutil.StopApp(app)

		util.PrintJson(eng.PreviewHostnames())
		return nil
	},
}
