package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-0123456789")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Server.AuthRateLimit)
	assert.Equal(t, "data/learnpath.db", cfg.DB.Path)
	assert.Equal(t, "env-secret-0123456789", cfg.Auth.JWTSecret)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.Auth.GitHub.CallbackURL)
	assert.False(t, cfg.Auth.GitHub.Enabled())
	assert.Empty(t, cfg.Auth.GitHub.BaseURL)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
app_url: https://learnpath.dev/
server:
  port: 9000
log:
  level: debug
database:
  path: /var/lib/learnpath.db
auth:
  github:
    base_url: https://github.example.com
  google:
    client_id: from-file
smtp:
  host: smtp.example.com
  from: hello@learnpath.dev
`)
	t.Setenv("JWT_SECRET", "env-secret-0123456789")
	t.Setenv("PORT", "9100")
	t.Setenv("GOOGLE_CLIENT_SECRET", "g-secret")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "/var/lib/learnpath.db", cfg.DB.Path)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.True(t, cfg.Auth.Google.Enabled())
	assert.Equal(t, "https://github.example.com", cfg.Auth.GitHub.BaseURL)
	assert.Equal(t, "https://learnpath.dev/auth/google/callback", cfg.Auth.Google.CallbackURL)
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "JWT_SECRET=dotenv-secret-0123456789\n")
	// godotenv sets the variable for the whole process; clear it afterwards.
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "dotenv-secret-0123456789", cfg.Auth.JWTSecret)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := Load(t.TempDir())

	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLog_SlogLevel_Fallback(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, Log{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Log{Level: "loud"}.SlogLevel())
}
