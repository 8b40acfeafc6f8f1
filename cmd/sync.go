package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncIfDue bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync with the remote copy",
	Long: `Sync the store with its remote copy. The copy with the higher
revision wins: a newer local store is uploaded, a newer remote copy
replaces the local file.

With --if-due nothing happens when the last sync is more recent than the
sync_interval setting (5 minutes by default).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { st.Destroy() }()

		if syncIfDue {
			res, ran, err := app.SyncIfDue(cmd.Context(), st, reauthenticate)
			if err != nil {
				return err
			}
			if !ran {
				fmt.Println("Sync not due")
				return nil
			}
			printSyncResult(res)
			if res.Store != st {
				st.Destroy()
				st = res.Store
			}
			return nil
		}

		res, err := app.Sync(cmd.Context(), st, reauthenticate)
		if err != nil {
			return err
		}
		printSyncResult(res)
		if res.Store != st {
			st.Destroy()
			st = res.Store
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncIfDue, "if-due", false, "only sync when the last sync is older than the sync interval")
	rootCmd.AddCommand(syncCmd)
}
