package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/store"
)

var diffSecrets bool

var diffCmd = &cobra.Command{
	Use:   "diff <file>",
	Short: "Compare the store with another store file",
	Long: `Show a unified diff from the store to another store file, e.g. a
backup or a downloaded remote copy. Secrets are hidden unless --secrets is
given; a changed secret still shows as a changed line.

The other file is opened with the store password first, then its own
password is asked for.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Destroy()

		other, err := openOther(app, st, args[0])
		if err != nil {
			return err
		}
		defer other.Destroy()

		out, err := core.Diff(st, other, st.Path(), args[0], diffSecrets)
		if err != nil {
			return err
		}
		if out == "" {
			fmt.Println("No differences")
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

func openOther(app *core.UPM, st *store.Store, path string) (*store.Store, error) {
	other, err := app.OpenFile(path, st.Key())
	if !errors.Is(err, crypto.ErrInvalidPassword) {
		return other, err
	}

	password, err := core.ReadPassword(fmt.Sprintf("Password for %s: ", path))
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password)
	return app.OpenFile(path, crypto.NewKey(password))
}

func init() {
	diffCmd.Flags().BoolVar(&diffSecrets, "secrets", false, "show secrets in the diff")
	rootCmd.AddCommand(diffCmd)
}
