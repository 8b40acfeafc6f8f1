package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/config"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/crypto"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new password store",
	Long: `Create an empty password store at the configured path.

The password is read from UPM_PASSWORD or asked for twice. It must be at
least 6 characters long.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		password := config.PasswordFromEnv()
		if password == nil {
			password, err = core.ReadPasswordConfirm()
			if err != nil {
				return err
			}
		}
		defer crypto.ClearBytes(password)

		if err := os.MkdirAll(filepath.Dir(app.Path()), 0700); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}

		st, err := app.Init(password, initForce)
		if err != nil {
			return err
		}
		defer st.Destroy()

		fmt.Printf("%s Created %s\n", okMark, app.Path())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "replace an existing store")
	rootCmd.AddCommand(initCmd)
}
