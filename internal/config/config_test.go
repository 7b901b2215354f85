package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoad_DefaultsAndEnv verifies defaults and COACHDESK_ overrides.
func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COACHDESK_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("COACHDESK_DATABASE_DRIVER", "pgx")
	t.Setenv("COACHDESK_DATABASE_DSN", "postgres://localhost/coachdesk")
	t.Setenv("COACHDESK_REDIS_TTL", "30s")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "pgx", cfg.Database.Driver)
	require.Equal(t, "postgres://localhost/coachdesk", cfg.Database.DSN)
	require.Equal(t, 30*time.Second, cfg.Redis.TTL)
	require.Equal(t, 15*time.Minute, cfg.S3.PresignTTL)
	require.Equal(t, 50*time.Millisecond, cfg.Database.SlowQuery())
	require.True(t, cfg.Auth.SecureCookies)
}

// TestLoad_YAMLFileThenEnv verifies the file is read and env still wins.
func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "coachdesk.yaml")
	yaml := "server:\n  addr: \":9090\"\nauth:\n  jwt_secret: fromfile\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("COACHDESK_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.Equal(t, "fromfile", cfg.Auth.JWTSecret)
	require.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

// TestLoad_DotEnv verifies a .env file in the working directory is honoured.
func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COACHDESK_AUTH_JWT_SECRET=dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("COACHDESK_AUTH_JWT_SECRET") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "dotenv", cfg.Auth.JWTSecret)
}

// TestValidate tests the required keys.
func TestValidate(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "x.db"},
		Auth:     AuthConfig{JWTSecret: "k"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"no dsn", func(c *Config) { c.Database.DSN = "" }},
		{"no jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"bucket without region", func(c *Config) { c.S3.Bucket = "b"; c.S3.Region = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
