package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/syncer"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Destroy()

		opts := st.Options()
		fmt.Printf("Store:     %s\n", app.Path())
		fmt.Printf("Format:    %s\n", st.Format())
		fmt.Printf("Revision:  %d\n", st.Revision())
		fmt.Printf("Accounts:  %d\n", st.Len())

		if !opts.SyncEnabled() {
			fmt.Println("Remote:    none")
		} else {
			fmt.Printf("Remote:    %s\n", opts.RemoteLocation)
			if opts.AuthEntry != "" {
				fmt.Printf("Auth:      %s\n", opts.AuthEntry)
			}
		}

		entry, err := app.State().LastSync(app.Path())
		if err != nil {
			return err
		}
		var last time.Time
		if entry == nil {
			fmt.Println("Last sync: never")
		} else {
			last = entry.Time
			fmt.Printf("Last sync: %s (%s, local %d, remote %d)\n",
				entry.Time.Local().Format(time.DateTime), entry.Outcome, entry.LocalRevision, entry.RemoteRevision)
			if entry.Diverged {
				fmt.Printf("%s Copies differed at the same revision\n", warnMark)
			}
		}
		if opts.SyncEnabled() {
			due := syncer.Due(opts, last, time.Now(), cfg.SyncInterval)
			fmt.Printf("Sync due:  %t\n", due)
		}

		if app.HasRememberedPassword() {
			fmt.Println("Keyring:   password stored")
		} else {
			fmt.Println("Keyring:   no password stored")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
