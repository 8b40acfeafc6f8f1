package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/illarion/upm/internal/server"
)

var (
	serveAddr string
	serveDir  string
	serveUser string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a directory of store files over HTTP",
	Long: `Serve a directory so stores can sync with it over HTTP:

  GET  /<name>                               download a store file
  POST /upload.php                           upload the "userfile" form field
  GET  /deletefile.php?fileToDelete=<name>   delete a store file

Basic auth is enabled when a user is set; the password comes from the
server.password setting (UPM_SERVER_PASSWORD). Use a TLS terminating proxy
in front of it on untrusted networks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		dir := cfg.Server.Dir
		if cmd.Flags().Changed("dir") {
			dir = serveDir
		}
		user := cfg.Server.User
		if cmd.Flags().Changed("user") {
			user = serveUser
		}
		if user != "" && cfg.Server.Password == "" {
			return errors.New("server.password must be set when a user is given")
		}

		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}

		handler := server.NewRouter(server.Config{
			Dir:      dir,
			Username: user,
			Password: cfg.Server.Password,
		}, log)

		fmt.Printf("Serving %s on http://%s/\n", dir, addr)
		err = server.Run(cmd.Context(), addr, handler, log)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if err != nil {
			log.Error("server stopped", zap.Error(err))
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "directory to serve (default from server.dir)")
	serveCmd.Flags().StringVar(&serveUser, "user", "", "basic auth user (default from server.user)")
	rootCmd.AddCommand(serveCmd)
}
