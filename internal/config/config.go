// Package config loads upm settings from a config file, a .env file and
// UPM_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix   = "UPM"
	PasswordEnv = EnvPrefix + "_PASSWORD"
	configName  = "upm"
	homeDirName = ".upm"
)

// Keys
const (
	KeyDatabase       = "database"
	KeyState          = "state"
	KeyLogLevel       = "log_level"
	KeyLegacyCharset  = "legacy_charset"
	KeySyncInterval   = "sync_interval"
	KeyHTTPTimeout    = "http_timeout"
	KeyServerAddr     = "server.addr"
	KeyServerDir      = "server.dir"
	KeyServerUser     = "server.user"
	KeyServerPassword = "server.password"
)

type Config struct {
	Database      string
	State         string
	LogLevel      string
	LegacyCharset string
	SyncInterval  time.Duration
	HTTPTimeout   time.Duration
	Server        Server
}

type Server struct {
	Addr     string
	Dir      string
	User     string
	Password string
}

// Options selects the files Load reads. Empty fields mean the defaults:
// upm.yaml in ~/.upm or the working directory, and ./.env.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load reads the configuration
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		if dir, err := HomeDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Config{
		Database:      expandHome(v.GetString(KeyDatabase)),
		State:         expandHome(v.GetString(KeyState)),
		LogLevel:      v.GetString(KeyLogLevel),
		LegacyCharset: v.GetString(KeyLegacyCharset),
		SyncInterval:  v.GetDuration(KeySyncInterval),
		HTTPTimeout:   v.GetDuration(KeyHTTPTimeout),
		Server: Server{
			Addr:     v.GetString(KeyServerAddr),
			Dir:      expandHome(v.GetString(KeyServerDir)),
			User:     v.GetString(KeyServerUser),
			Password: v.GetString(KeyServerPassword),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	home, err := HomeDir()
	if err != nil {
		home = homeDirName
	}
	v.SetDefault(KeyDatabase, filepath.Join(home, "store.upm"))
	v.SetDefault(KeyState, filepath.Join(home, "state.db"))
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLegacyCharset, "windows-1252")
	v.SetDefault(KeySyncInterval, 5*time.Minute)
	v.SetDefault(KeyHTTPTimeout, 30*time.Second)
	v.SetDefault(KeyServerAddr, "127.0.0.1:8080")
	v.SetDefault(KeyServerDir, ".")
	// server.user and server.password have no default but must be known
	// to viper for AutomaticEnv to find them
	v.SetDefault(KeyServerUser, "")
	v.SetDefault(KeyServerPassword, "")
}

// HomeDir is where upm keeps its files by default
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeDirName), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// PasswordFromEnv returns UPM_PASSWORD, or nil when unset
func PasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil
	}
	return []byte(password)
}
