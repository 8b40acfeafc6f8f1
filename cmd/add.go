package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/record"
)

var addFlags accountFlags

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an account",
	Long: `Add an account. The secret is asked for on the terminal unless
--generate is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { st.Destroy() }()

		name := args[0]
		if st.Has(name) {
			return fmt.Errorf("%w: %s", core.ErrAccountExists, name)
		}

		a := &record.Account{Name: name}
		if err := addFlags.apply(cmd, a, true); err != nil {
			return err
		}
		defer a.Destroy()

		if err := app.AddAccount(st, a); err != nil {
			return err
		}
		fmt.Printf("%s Added %s\n", okMark, name)

		st = syncAfterChange(cmd.Context(), app, st)
		return nil
	},
}

func init() {
	addFlags.register(addCmd)
	rootCmd.AddCommand(addCmd)
}

// accountFlags are the account fields shared by add and edit
type accountFlags struct {
	login     string
	url       string
	notes     string
	editNotes bool
	secret    bool
	generate  int
	symbols   bool
}

func (f *accountFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.login, "login", "l", "", "login or user name")
	flags.StringVarP(&f.url, "url", "u", "", "URL")
	flags.StringVarP(&f.notes, "notes", "n", "", "notes")
	flags.BoolVarP(&f.editNotes, "edit-notes", "e", false, "edit the notes in $VISUAL or $EDITOR")
	flags.BoolVarP(&f.secret, "secret", "s", false, "ask for a new secret")
	flags.IntVarP(&f.generate, "generate", "g", 0, fmt.Sprintf("generate a random secret of this length (e.g. %d)", core.DefaultGeneratedLength))
	flags.BoolVar(&f.symbols, "symbols", true, "include symbols in generated secrets")
	cmd.MarkFlagsMutuallyExclusive("notes", "edit-notes")
	cmd.MarkFlagsMutuallyExclusive("secret", "generate")
}

// apply copies the flags set on the command line into a. A new account
// always gets a secret, asked for unless generated.
func (f *accountFlags) apply(cmd *cobra.Command, a *record.Account, isNew bool) error {
	flags := cmd.Flags()
	if flags.Changed("login") {
		a.Login = []byte(f.login)
	}
	if flags.Changed("url") {
		a.URL = []byte(f.url)
	}
	if flags.Changed("notes") {
		a.Notes = []byte(f.notes)
	}
	if f.editNotes {
		notes, err := core.EditText(a.Notes)
		if err != nil {
			return err
		}
		a.Notes = notes
	}

	switch {
	case f.generate > 0:
		secret, err := core.GeneratePassword(f.generate, f.symbols)
		if err != nil {
			return err
		}
		crypto.ClearBytes(a.Secret)
		a.Secret = secret
	case f.secret || isNew:
		secret, err := core.ReadPassword(fmt.Sprintf("Secret for %s: ", a.Name))
		if err != nil {
			return err
		}
		crypto.ClearBytes(a.Secret)
		a.Secret = secret
	}
	return nil
}
