package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "Telemetry", cfg.WindowTitle)
	assert.Equal(t, "Main", cfg.TileID)
	assert.Equal(t, "Telemetry", cfg.TabID)
	assert.Equal(t, "50ms", cfg.TickInterval)
	assert.Equal(t, 240, cfg.GraphMaxSamples)
	assert.Equal(t, "127.0.0.1", cfg.OTLPHost)
	assert.Equal(t, 0, cfg.OTLPPort)
	assert.Equal(t, "otlp", cfg.OTLPTab)
	assert.Equal(t, 4381, cfg.WebUIPort)
	assert.False(t, cfg.Verbose)
}

func TestServiceOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = "25ms"
	cfg.GraphMaxSamples = 100

	opts, err := cfg.ServiceOptions()
	require.NoError(t, err)

	assert.Equal(t, "Telemetry", opts.WindowTitle)
	assert.Equal(t, 25*time.Millisecond, opts.TickInterval)
	assert.Equal(t, 100, opts.GraphDefaults.MaxSamples)
	assert.True(t, opts.GraphDefaults.AutoScale)
}

func TestServiceOptionsInvalidTick(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = "fast"

	_, err := cfg.ServiceOptions()
	assert.ErrorContains(t, err, "invalid tick_interval")
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"window_title": "My Game",
		"tick_interval": "100ms",
		"webui_port": 9000
	}`), 0644))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "My Game", cfg.WindowTitle)
	assert.Equal(t, "100ms", cfg.TickInterval)
	assert.Equal(t, 9000, cfg.WebUIPort)
	assert.Empty(t, cfg.TileID) // not set in file
}

func TestLoadConfigFromFileErrors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = LoadConfigFromFile(bad)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestMergeConfigs(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{
		WindowTitle: "Override",
		WebUIPort:   8080,
		Verbose:     true,
	}

	merged := MergeConfigs(base, overlay)

	// Overlay wins where set
	assert.Equal(t, "Override", merged.WindowTitle)
	assert.Equal(t, 8080, merged.WebUIPort)
	assert.True(t, merged.Verbose)

	// Base survives where overlay is zero
	assert.Equal(t, "Main", merged.TileID)
	assert.Equal(t, "50ms", merged.TickInterval)
	assert.Equal(t, 240, merged.GraphMaxSamples)
}

func TestMergeConfigsNil(t *testing.T) {
	base := DefaultConfig()
	assert.Equal(t, base, MergeConfigs(base, nil))

	merged := MergeConfigs(nil, &Config{WindowTitle: "X"})
	assert.Equal(t, "X", merged.WindowTitle)
}

func TestMergeConfigsDoesNotMutateBase(t *testing.T) {
	base := DefaultConfig()
	MergeConfigs(base, &Config{WindowTitle: "Changed"})
	assert.Equal(t, "Telemetry", base.WindowTitle)
}

func TestLoadEffectiveConfigEnvOverlay(t *testing.T) {
	t.Setenv("TELEVIEW_WINDOW_TITLE", "From Env")
	t.Setenv("TELEVIEW_GRAPH_MAX_SAMPLES", "64")
	t.Setenv("TELEVIEW_VERBOSE", "true")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"window_title": "From File",
		"tab_id": "game"
	}`), 0644))

	cfg, err := LoadEffectiveConfig(path)
	require.NoError(t, err)

	// Env beats file, file beats defaults.
	assert.Equal(t, "From Env", cfg.WindowTitle)
	assert.Equal(t, 64, cfg.GraphMaxSamples)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "game", cfg.TabID)
	assert.Equal(t, "Main", cfg.TileID)
}

func TestLoadEffectiveConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadEffectiveConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "failed to load config file")
}
