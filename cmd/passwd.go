package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/crypto"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the store password",
	Long: `Change the store password. The store is saved under a new salt, and
a password cached in the OS keyring is replaced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { st.Destroy() }()

		fmt.Println("New password")
		password, err := core.ReadPasswordConfirm()
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(password)

		if err := app.ChangePassword(st, password); err != nil {
			return err
		}
		fmt.Printf("%s Password changed\n", okMark)

		st = syncAfterChange(cmd.Context(), app, st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}
