package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOtelConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
exporters:
  file/metrics:
    path: /var/telemetry/metrics.jsonl
  file/events:
    path: /var/telemetry/events.jsonl
  file/rotated:
    path: /var/archive/metrics.jsonl
  otlp/upstream:
    path: /should/be/ignored.jsonl
  debug: {}
`), 0644))

	dirs, err := ParseOtelConfig(path)
	require.NoError(t, err)

	// Deduplicated, sorted, and only file exporters considered.
	assert.Equal(t, []string{"/var/archive", "/var/telemetry"}, dirs)
}

func TestParseOtelConfigBareFileExporter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
exporters:
  file:
    path: /tmp/out/telemetry.jsonl
`), 0644))

	dirs, err := ParseOtelConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/out"}, dirs)
}

func TestParseOtelConfigErrors(t *testing.T) {
	_, err := ParseOtelConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read otel config")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("exporters: [not: a map"), 0644))
	_, err = ParseOtelConfig(bad)
	assert.ErrorContains(t, err, "failed to parse otel config")
}
