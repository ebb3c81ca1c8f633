package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// OtelCollectorConfig represents the relevant parts of an OpenTelemetry
// Collector config. Only the exporters section is parsed, to find file
// exporters whose output the file feed can tail.
type OtelCollectorConfig struct {
	Exporters map[string]FileExporter `yaml:"exporters"`
}

// FileExporter represents a file exporter configuration.
type FileExporter struct {
	Path string `yaml:"path"`
}

// ParseOtelConfig reads an OpenTelemetry Collector config file and
// extracts directories from file exporter paths. Exporters named
// "file" or "file/<anything>" are considered; the parent directories
// of their paths are returned sorted and deduplicated, ready to hand
// to the file feed.
func ParseOtelConfig(configPath string) ([]string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read otel config: %w", err)
	}

	var config OtelCollectorConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse otel config: %w", err)
	}

	dirSet := make(map[string]struct{})
	for name, exporter := range config.Exporters {
		if exporter.Path == "" {
			continue
		}
		if name != "file" && !strings.HasPrefix(name, "file/") {
			continue
		}
		dirSet[filepath.Clean(filepath.Dir(exporter.Path))] = struct{}{}
	}

	dirs := make([]string, 0, len(dirSet))
	for dir := range dirSet {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	return dirs, nil
}
