package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/config"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/crypto"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Cache the store password in the OS keyring",
}

var keyringSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the store password to the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if !app.Exists() {
			return core.ErrNotInitialized
		}

		password := config.PasswordFromEnv()
		if password == nil {
			password, err = core.ReadPassword("Password: ")
			if err != nil {
				return err
			}
		}
		defer crypto.ClearBytes(password)

		if err := app.RememberPassword(password); err != nil {
			return err
		}
		fmt.Printf("%s Password saved to keyring\n", okMark)
		return nil
	},
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the store password from the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if !app.HasRememberedPassword() {
			fmt.Println("No password stored in keyring")
			return nil
		}
		if err := app.ForgetPassword(); err != nil {
			return err
		}
		fmt.Printf("%s Password removed from keyring\n", okMark)
		return nil
	},
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a password is cached",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if app.HasRememberedPassword() {
			fmt.Println("Password is stored in keyring")
		} else {
			fmt.Println("No password stored in keyring")
		}
		return nil
	},
}

func init() {
	keyringCmd.AddCommand(keyringSaveCmd, keyringDeleteCmd, keyringStatusCmd)
	rootCmd.AddCommand(keyringCmd)
}
