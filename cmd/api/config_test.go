package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DB.DSN)
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.DB.Timeout)
	assert.True(t, cfg.Limiter.Enabled)
	assert.Equal(t, 10.0, cfg.Limiter.RPS)
	assert.Equal(t, 20, cfg.Limiter.Burst)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("FORMFIELDS_PORT", "8080")
	t.Setenv("FORMFIELDS_ENV", "production")
	t.Setenv("FORMFIELDS_DB_DSN", "postgres://localhost/formfields")
	t.Setenv("FORMFIELDS_DB_TIMEOUT", "2s")
	t.Setenv("FORMFIELDS_LIMITER_ENABLED", "false")

	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "postgres://localhost/formfields", cfg.DB.DSN)
	assert.Equal(t, 2*time.Second, cfg.DB.Timeout)
	assert.False(t, cfg.Limiter.Enabled)
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("FORMFIELDS_PORT", "8080")

	cfg, err := loadConfig([]string{"-port", "9090", "-inputs", "inputs.yaml", "-limiter-burst", "3"})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "inputs.yaml", cfg.InputsFile)
	assert.Equal(t, 3, cfg.Limiter.Burst)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "port out of range", args: []string{"-port", "70000"}},
		{name: "unknown flag", args: []string{"-nope"}},
		{name: "bad env value", env: map[string]string{"FORMFIELDS_PORT": "abc"}},
		{name: "zero rps", args: []string{"-limiter-rps", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(tt.args)
			assert.Error(t, err)
		})
	}

	t.Run("malformed .env file", func(t *testing.T) {
		dir := t.TempDir()
		content := "FORMFIELDS_PORT=7000\nthis is 'broken\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
		t.Chdir(dir)

		_, err := loadConfig(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load .env")
	})

	t.Run("disabled limiter ignores rps", func(t *testing.T) {
		_, err := loadConfig([]string{"-limiter-enabled=false", "-limiter-rps", "0"})
		assert.NoError(t, err)
	})
}

func TestLoadConfigFromDotEnv(t *testing.T) {
	// register restoration, then clear so the .env value is not shadowed
	t.Setenv("FORMFIELDS_PORT", "")
	require.NoError(t, os.Unsetenv("FORMFIELDS_PORT"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FORMFIELDS_PORT=7000\n"), 0o600))
	t.Chdir(dir)

	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoadConfigTrustProxy(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.False(t, cfg.Limiter.TrustProxy, "forwarding headers are untrusted by default")

	t.Setenv("FORMFIELDS_LIMITER_TRUST_PROXY", "true")
	cfg, err = loadConfig(nil)
	require.NoError(t, err)
	assert.True(t, cfg.Limiter.TrustProxy)
}
