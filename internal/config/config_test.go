package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"UPM_DATABASE", "UPM_STATE", "UPM_LOG_LEVEL", "UPM_SERVER_ADDR", "UPM_SYNC_INTERVAL", "UPM_PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return home
}

func TestDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".upm", "store.upm"), cfg.Database)
	assert.Equal(t, filepath.Join(home, ".upm", "state.db"), cfg.State)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "windows-1252", cfg.LegacyCharset)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestConfigFileAndEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfgFile := filepath.Join(dir, "upm.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
database: ~/vaults/work.upm
log_level: debug
sync_interval: 1m
server:
  addr: ":9000"
  user: admin
`), 0600))

	t.Setenv("UPM_LOG_LEVEL", "error")
	t.Setenv("UPM_SERVER_PASSWORD", "from-env")

	cfg, err := Load(Options{ConfigFile: cfgFile, EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "vaults", "work.upm"), cfg.Database)
	assert.Equal(t, "error", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "admin", cfg.Server.User)
	assert.Equal(t, "from-env", cfg.Server.Password)
}

func TestDotEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("UPM_STATE=/tmp/upm-state.db\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("UPM_STATE") })

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/upm-state.db", cfg.State)
}

func TestBadConfigFile(t *testing.T) {
	isolate(t)
	cfgFile := filepath.Join(t.TempDir(), "upm.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("database: [unterminated"), 0600))

	_, err := Load(Options{ConfigFile: cfgFile, EnvFile: filepath.Join(t.TempDir(), "none.env")})
	assert.Error(t, err)
}

func TestPasswordFromEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "")
	assert.Nil(t, PasswordFromEnv())

	t.Setenv(PasswordEnv, "s3cret")
	assert.Equal(t, []byte("s3cret"), PasswordFromEnv())
}
