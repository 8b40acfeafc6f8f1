package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/record"
)

var (
	showSecret bool
	showField  string
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an account",
	Long: `Show an account. The secret is hidden unless --secret is given.

With --field only that field is printed, without a trailing newline, so it
can be piped: upm show bank --field secret | xclip`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Destroy()

		a, ok := st.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrAccountNotFound, args[0])
		}
		defer a.Destroy()

		if showField != "" {
			value, err := field(a, showField)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(value)
			return err
		}

		secret := "********"
		if len(a.Secret) == 0 {
			secret = ""
		}
		if showSecret {
			secret = string(a.Secret)
		}

		fmt.Printf("Account: %s\n", a.Name)
		fmt.Printf("Login:   %s\n", a.Login)
		fmt.Printf("Secret:  %s\n", secret)
		fmt.Printf("URL:     %s\n", a.URL)
		if len(a.Notes) > 0 {
			fmt.Println("Notes:")
			for _, line := range strings.Split(string(a.Notes), "\n") {
				fmt.Printf("  %s\n", line)
			}
		}
		return nil
	},
}

func field(a *record.Account, name string) ([]byte, error) {
	switch name {
	case "name":
		return []byte(a.Name), nil
	case "login":
		return a.Login, nil
	case "secret":
		return a.Secret, nil
	case "url":
		return a.URL, nil
	case "notes":
		return a.Notes, nil
	default:
		return nil, fmt.Errorf("unknown field %q: use name, login, secret, url or notes", name)
	}
}

func init() {
	showCmd.Flags().BoolVarP(&showSecret, "secret", "s", false, "show the secret")
	showCmd.Flags().StringVarP(&showField, "field", "f", "", "print only this field")
	rootCmd.AddCommand(showCmd)
}
