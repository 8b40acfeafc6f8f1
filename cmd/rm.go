package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Remove accounts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { st.Destroy() }()

		if err := app.DeleteAccount(st, args...); err != nil {
			return err
		}
		for _, name := range args {
			fmt.Printf("%s Removed %s\n", okMark, name)
		}

		st = syncAfterChange(cmd.Context(), app, st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
