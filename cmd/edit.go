package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
)

var (
	editFlags  accountFlags
	editRename string
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Change an account",
	Long: `Change the fields of an account given on the command line. Fields
that are not given keep their value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { st.Destroy() }()

		name := args[0]
		a, ok := st.Get(name)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrAccountNotFound, name)
		}
		defer a.Destroy()

		if cmd.Flags().Changed("rename") {
			if st.Has(editRename) && editRename != name {
				return fmt.Errorf("%w: %s", core.ErrAccountExists, editRename)
			}
			a.Name = editRename
		}
		if err := editFlags.apply(cmd, a, false); err != nil {
			return err
		}

		if err := app.UpdateAccount(st, name, a); err != nil {
			return err
		}
		if a.Name != name {
			fmt.Printf("%s Renamed %s to %s\n", okMark, name, a.Name)
		} else {
			fmt.Printf("%s Updated %s\n", okMark, name)
		}

		st = syncAfterChange(cmd.Context(), app, st)
		return nil
	},
}

func init() {
	editFlags.register(editCmd)
	editCmd.Flags().StringVarP(&editRename, "rename", "r", "", "new account name")
	rootCmd.AddCommand(editCmd)
}
