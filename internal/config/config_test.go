package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray engsite.yaml or .env is read.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ":8081", cfg.Admin.Addr)
	assert.Equal(t, "web/admin/static", cfg.Admin.StaticDir)
	assert.Equal(t, 12*time.Hour, cfg.Admin.SessionTTL)
	assert.True(t, cfg.Backend.Enabled)
	assert.Equal(t, DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, DefaultBackendAPIKey, cfg.Backend.APIKey)
	assert.Equal(t, "anon", cfg.Backend.Role)
	assert.Equal(t, 10*time.Second, cfg.Sync.Interval)
	assert.False(t, cfg.Payment.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := chdir(t)
	yaml := `
data_dir: /var/lib/engsite
log:
  level: debug
backend:
  url: postgres://site@db:5432/site
  timeout: 2s
admin:
  session_ttl: 30m
  users:
    - username: editor
      password_hash: "$2a$10$abcdefghijklmnopqrstuuY6kT0b7xQ6m0Z2hYc8r7sW5GQn0hZ9e"
payment:
  enabled: true
  endpoint: https://pay.example/checkout
`
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("ENGSITE_BACKEND_ENABLED", "false")
	t.Setenv("ENGSITE_SERVER_ADDR", ":9090")

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/engsite", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Backend.Enabled)
	assert.Equal(t, "postgres://site@db:5432/site", cfg.Backend.URL)
	assert.Equal(t, 2*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Admin.SessionTTL)
	require.Len(t, cfg.Admin.Users, 1)
	assert.Equal(t, "editor", cfg.Admin.Users[0].Username)
	assert.True(t, cfg.Payment.Enabled)
}

func TestLoadEnvFile(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ENGSITE_DATA_DIR=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ENGSITE_DATA_DIR") })

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.DataDir)
}

func TestLoadErrors(t *testing.T) {
	dir := chdir(t)

	_, err := Load(Options{ConfigFile: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)

	_, err = Load(Options{EnvFile: filepath.Join(dir, "missing.env")})
	assert.Error(t, err)

	t.Setenv("ENGSITE_PAYMENT_ENABLED", "true")
	_, err = Load(Options{})
	assert.ErrorContains(t, err, "payment.endpoint")
}

func TestValidateLogLevel(t *testing.T) {
	cfg := Config{DataDir: "d", Log: LogConfig{Level: "loud"}}
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
