package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/illarion/upm/internal/config"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/logger"
	"github.com/illarion/upm/internal/record"
	"github.com/illarion/upm/internal/state"
)

var (
	cfgFile  string
	envFile  string
	dbPath   string
	logLevel string
	offline  bool

	cfg      *config.Config
	log      *zap.Logger
	appState *state.State
)

var rootCmd = &cobra.Command{
	Use:   "upm",
	Short: "Universal Password Manager",
	Long: `upm keeps accounts (login, secret, URL, notes) in a single encrypted
file and can keep that file in sync with a copy on a web server or in a
shared directory.

The store password is taken from UPM_PASSWORD, then the OS keyring, then
asked for on the terminal.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the command line and exits non-zero on failure
func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	teardown()
	if err != nil {
		HandleError(err)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ~/.upm/upm.yaml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file (default ./.env)")
	flags.StringVarP(&dbPath, "database", "d", "", "store file (default ~/.upm/store.upm)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&offline, "offline", false, "do not sync after changes")
}

func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(config.Options{ConfigFile: cfgFile, EnvFile: envFile})
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err = logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	return nil
}

func teardown() {
	if appState != nil {
		if err := appState.Close(); err != nil {
			log.Warn("failed to close state", zap.Error(err))
		}
		appState = nil
	}
	if log != nil {
		_ = log.Sync()
	}
}

// newApp opens the installation state and builds the service for the
// configured store
func newApp() (*core.UPM, error) {
	charset, err := record.LookupCharset(cfg.LegacyCharset)
	if err != nil {
		return nil, err
	}

	if appState == nil {
		if err := os.MkdirAll(filepath.Dir(cfg.State), 0700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		appState, err = state.Open(cfg.State)
		if err != nil {
			return nil, err
		}
	}

	return core.New(cfg.Database,
		core.WithState(appState),
		core.WithLogger(log),
		core.WithLegacyCharset(charset),
		core.WithHTTPTimeout(cfg.HTTPTimeout),
		core.WithSyncInterval(cfg.SyncInterval),
	), nil
}
