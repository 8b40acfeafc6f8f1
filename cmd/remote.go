package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/syncer"
)

var remoteAuth string

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage the remote copy location",
	Long: `The remote location is an http(s) URL of a directory served with
'upm serve' (or a compatible upload script), a file URL, or a plain
directory path. The remote copy is stored under the same file name as the
local store.`,
}

var remoteSetCmd = &cobra.Command{
	Use:   "set <location>",
	Short: "Set the remote location",
	Long: `Set the remote location. --auth names the account whose login and
secret are sent as HTTP basic auth credentials.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Destroy()

		if err := app.SetRemote(st, args[0], remoteAuth); err != nil {
			return err
		}
		fmt.Printf("%s Remote set to %s\n", okMark, st.Options().RemoteLocation)
		return nil
	},
}

var remoteClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Stop syncing with a remote copy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Destroy()

		if err := app.SetRemote(st, "", ""); err != nil {
			return err
		}
		fmt.Printf("%s Remote cleared\n", okMark)
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the remote location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Destroy()

		opts := st.Options()
		if !opts.SyncEnabled() {
			return syncer.ErrNoRemote
		}
		fmt.Printf("Location:   %s\n", opts.RemoteLocation)
		fmt.Printf("Remote file: %s\n", syncer.RemoteName(st))
		if opts.AuthEntry != "" {
			fmt.Printf("Auth entry: %s\n", opts.AuthEntry)
		}
		return nil
	},
}

func init() {
	remoteSetCmd.Flags().StringVarP(&remoteAuth, "auth", "a", "", "account holding the remote credentials")
	remoteCmd.AddCommand(remoteSetCmd, remoteClearCmd, remoteShowCmd)
	rootCmd.AddCommand(remoteCmd)
}
