package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Type: Unit Test
func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Validation.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Validation.StepTimeout)
	assert.Equal(t, 65536, cfg.Validation.OutputLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadUserConfigOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	xdg.Reload()

	dir := filepath.Join(home, "fuzzgen")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[validation]
workers = 4
step_timeout = "30s"

[watch]
debounce = "1s"
`), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Validation.Workers)
	assert.Equal(t, 30*time.Second, cfg.Validation.StepTimeout)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	// Untouched keys keep their defaults.
	assert.Equal(t, 65536, cfg.Validation.OutputLimit)
}

func TestLoadEnvOverridesEverything(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	xdg.Reload()

	dir := filepath.Join(home, "fuzzgen")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[validation]
workers = 4
`), 0644))

	t.Setenv("FUZZGEN_VALIDATION__WORKERS", "8")
	t.Setenv("FUZZGEN_WATCH__DEBOUNCE", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Validation.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}
