package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Tests
// =============================================================================

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Project.ID)
	assert.Equal(t, "us-central1", cfg.Project.Region)
	assert.Equal(t, "gcr.io", cfg.Registry.Host)
	assert.Equal(t, "raincast.yaml", cfg.Deploy.Manifest)
	assert.Equal(t, 8080, cfg.Deploy.ServicePort)
	assert.Equal(t, 10*time.Minute, cfg.Deploy.Timeout)
	assert.Equal(t, "raincast-proxy", cfg.Proxy.ServiceName)
	assert.Equal(t, 8080, cfg.Proxy.ListenPort)
	assert.Equal(t, "nginx:1.27-alpine", cfg.Proxy.BaseImage)
	assert.Equal(t, "docker-compose.yml", cfg.Local.StackFile)
	assert.Equal(t, "raincast", cfg.Local.Project)
	assert.Equal(t, "./data/raincast.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RAINCAST_PROJECT_ID", "demo-project")
	t.Setenv("RAINCAST_REGION", "europe-west1")
	t.Setenv("RAINCAST_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "demo-project", cfg.Project.ID)
	assert.Equal(t, "europe-west1", cfg.Project.Region)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigAmbientProjectFallback(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "ambient-project")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "ambient-project", cfg.Project.ID)

	// An explicit RAINCAST_ override beats the ambient value.
	t.Setenv("RAINCAST_PROJECT_ID", "explicit-project")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "explicit-project", cfg.Project.ID)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
project:
  id: file-project
deploy:
  manifest: stack.yaml
  timeout: 2m
proxy:
  listen_port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-project", cfg.Project.ID)
	assert.Equal(t, "stack.yaml", cfg.Deploy.Manifest)
	assert.Equal(t, 2*time.Minute, cfg.Deploy.Timeout)
	assert.Equal(t, 9090, cfg.Proxy.ListenPort)

	// Unset keys keep their defaults.
	assert.Equal(t, "us-central1", cfg.Project.Region)
	assert.Equal(t, "gcr.io", cfg.Registry.Host)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project: [broken"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "raincast.yaml", cfg.Deploy.Manifest)
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestSetupLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "bogus", ""} {
		cfg := &Config{Log: LogConfig{Level: level, Format: "text"}}
		assert.NotNil(t, SetupLogger(cfg))
	}
}
