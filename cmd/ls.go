package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lsLong bool

var lsCmd = &cobra.Command{
	Use:     "ls [filter]",
	Aliases: []string{"list"},
	Short:   "List accounts",
	Long: `List account names, sorted ignoring case. A filter keeps the
accounts whose name contains it, ignoring case.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Destroy()

		filter := ""
		if len(args) == 1 {
			filter = strings.ToLower(args[0])
		}

		accounts := st.Accounts()
		defer func() {
			for _, a := range accounts {
				a.Destroy()
			}
		}()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if lsLong {
			fmt.Fprintln(w, "NAME\tLOGIN\tURL")
		}
		shown := 0
		for _, a := range accounts {
			if filter != "" && !strings.Contains(strings.ToLower(a.Name), filter) {
				continue
			}
			shown++
			if lsLong {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.Name, a.Login, a.URL)
			} else {
				fmt.Fprintln(w, a.Name)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if shown == 0 {
			if filter != "" {
				fmt.Fprintf(os.Stderr, "No accounts match %q\n", args[0])
			} else {
				fmt.Fprintln(os.Stderr, "No accounts")
			}
		}
		return nil
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "show login and URL")
	rootCmd.AddCommand(lsCmd)
}
