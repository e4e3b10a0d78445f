package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	config, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Http.Port)
	assert.Equal(t, 30*time.Second, config.Http.Timeout)
	assert.Equal(t, []string{"*"}, config.Http.AllowedOrigins)
	assert.Equal(t, 1024, config.Predictor.CacheSize)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, `
http:
  port: 9000
  timeout: 5s
  allowed_origins: ["https://example.org"]
log:
  level: debug
  format: json
artifacts:
  dir: /srv/models
  model: forest.json
  watch: true
predictor:
  cache_size: 0
`)
	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, config.Http.Port)
	assert.Equal(t, 5*time.Second, config.Http.Timeout)
	assert.Equal(t, []string{"https://example.org"}, config.Http.AllowedOrigins)
	assert.Equal(t, int64(1<<20), config.Http.MaxBodyBytes)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.True(t, config.Artifacts.Watch)
	assert.Equal(t, 0, config.Predictor.CacheSize)

	paths := config.ArtifactPaths()
	assert.Equal(t, filepath.Join("/srv/models", "forest.json"), paths.Model)
	assert.Equal(t, filepath.Join("/srv/models", "label_encoders.json"), paths.LabelEncoders)
	assert.Equal(t, "random_forest", paths.ModelType)
}

func TestLoadPortFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	config, err := Load(writeConfig(t, "http:\n  port: 9000\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, config.Http.Port)

	t.Setenv("PORT", "http")
	_, err = Load(writeConfig(t, ""))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PORT", "")
	_, err := Load(writeConfig(t, "http:\n  port: 70000\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "predictor:\n  cache_size: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http: [1, 2"))
	assert.Error(t, err)
}
