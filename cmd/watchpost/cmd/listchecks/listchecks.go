package listchecks

import (
	"fmt"
	"strings"

	"github.com/pitkley/watchpost/internal/cmdutil"

	"github.com/spf13/cobra"
)

var ListChecksCmd = &cobra.Command{
	Use:   "list-checks",
	Short: "lists every registered check with its resolved parameter bindings",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, app, err := cmdutil.ExtractEngine(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer cmdutil.StopApp(app)

		for _, c := range eng.Checks() {
			fmt.Printf("%s(%s)\n", c.ID(), strings.Join(c.Bindings(), ", "))
		}

		return nil
	},
}
