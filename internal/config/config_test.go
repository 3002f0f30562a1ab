package config_test

import (
	"os"
	"testing"

	"vantage/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary YAML config file
func createTestYAML(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

const validYAML = `
workers: 4
editor:
  command: "code --wait"
theme:
  name: dracula
  ls_colors: false
cache:
  compression: 9
watch:
  rescan_interval: 30
log:
  file: /tmp/vantage.log
  debug: true
`

func TestLoadConfigFile(t *testing.T) {
	cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "code --wait", cfg.Editor.Command)
	assert.Equal(t, "dracula", cfg.Theme.Name)
	assert.False(t, cfg.Theme.LSColors)
	assert.Equal(t, 9, cfg.Cache.Compression)
	assert.Equal(t, 30, cfg.Watch.RescanInterval)
	assert.Equal(t, "/tmp/vantage.log", cfg.Log.File)
	assert.True(t, cfg.Log.Debug)
}

func TestLoadConfigFileMissingUsesDefaults(t *testing.T) {
	cfg, err := config.LoadConfigFile("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Equal(t, "monokai", cfg.Theme.Name)
	assert.True(t, cfg.Theme.LSColors)
	assert.Equal(t, 6, cfg.Cache.Compression)
	assert.Equal(t, 10, cfg.Watch.RescanInterval)
}

func TestLoadConfigFilePartialMergesDefaults(t *testing.T) {
	cfg, err := config.LoadConfigFile(createTestYAML(t, "workers: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "monokai", cfg.Theme.Name)
	assert.Equal(t, 6, cfg.Cache.Compression)
}

func TestLoadConfigFileExplicitZeroCompression(t *testing.T) {
	cfg, err := config.LoadConfigFile(createTestYAML(t, "cache:\n  compression: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Cache.Compression)
}

func TestLoadConfigFileMalformed(t *testing.T) {
	_, err := config.LoadConfigFile(createTestYAML(t, "workers: [not a number\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	_, err := config.LoadConfigFile(createTestYAML(t, "workers: 99\n"))
	assert.Error(t, err)

	_, err = config.LoadConfigFile(createTestYAML(t, "cache:\n  compression: 12\n"))
	assert.Error(t, err)

	_, err = config.LoadConfigFile(createTestYAML(t, "watch:\n  rescan_interval: -5\n"))
	assert.NoError(t, err) // non-positive values fall back to the default
}

func TestEditorCommandFallback(t *testing.T) {
	cfg, err := config.LoadConfigFile("/nonexistent/config.yaml")
	require.NoError(t, err)

	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nano")
	assert.Equal(t, "nano", cfg.EditorCommand())

	t.Setenv("VISUAL", "vim")
	assert.Equal(t, "vim", cfg.EditorCommand())

	cfg.Editor.Command = "emacsclient"
	assert.Equal(t, "emacsclient", cfg.EditorCommand())
}
