package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/buzzcola3/teleview/internal/service"
	"github.com/buzzcola3/teleview/internal/telemetry"
)

// Config holds the runtime configuration for the teleview server.
// It can be populated from CLI flags, config files, environment
// variables, or all three.
type Config struct {
	// Comment field for user documentation (ignored by the application)
	Comment string `json:"comment,omitempty" env:"-"`

	// Telemetry view identity and pacing
	WindowTitle     string `json:"window_title,omitempty" env:"TELEVIEW_WINDOW_TITLE"`
	TileID          string `json:"tile_id,omitempty" env:"TELEVIEW_TILE_ID"`
	TabID           string `json:"tab_id,omitempty" env:"TELEVIEW_TAB_ID"`
	TickInterval    string `json:"tick_interval,omitempty" env:"TELEVIEW_TICK_INTERVAL"`       // e.g. "50ms"
	GraphMaxSamples int    `json:"graph_max_samples,omitempty" env:"TELEVIEW_GRAPH_MAX_SAMPLES"` // default retention per graph

	// OTLP ingest configuration
	OTLPHost string `json:"otlp_host,omitempty" env:"TELEVIEW_OTLP_HOST"`
	OTLPPort int    `json:"otlp_port,omitempty" env:"TELEVIEW_OTLP_PORT"` // 0 = ephemeral
	OTLPTab  string `json:"otlp_tab,omitempty" env:"TELEVIEW_OTLP_TAB"`   // tab for ingested metrics

	// Web UI configuration
	WebUIHost string `json:"webui_host,omitempty" env:"TELEVIEW_WEBUI_HOST"`
	WebUIPort int    `json:"webui_port,omitempty" env:"TELEVIEW_WEBUI_PORT"`

	// File feed configuration
	FeedDirectory string `json:"feed_directory,omitempty" env:"TELEVIEW_FEED_DIR"`

	// Logging configuration
	Verbose bool `json:"verbose,omitempty" env:"TELEVIEW_VERBOSE"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		WindowTitle:     "Telemetry",
		TileID:          "Main",
		TabID:           "Telemetry",
		TickInterval:    "50ms",
		GraphMaxSamples: 240,
		OTLPHost:        "127.0.0.1",
		OTLPPort:        0, // 0 means ephemeral port assignment
		OTLPTab:         "otlp",
		WebUIHost:       "127.0.0.1",
		WebUIPort:       4381,
		Verbose:         false,
	}
}

// ServiceOptions converts the config into service start options.
func (c *Config) ServiceOptions() (service.Options, error) {
	tick, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return service.Options{}, fmt.Errorf("invalid tick_interval %q: %w", c.TickInterval, err)
	}
	graphDefaults := telemetry.DefaultGraphConfig()
	if c.GraphMaxSamples > 0 {
		graphDefaults.MaxSamples = c.GraphMaxSamples
	}
	return service.Options{
		WindowTitle:   c.WindowTitle,
		TileID:        c.TileID,
		TabID:         c.TabID,
		GraphDefaults: graphDefaults,
		TickInterval:  tick,
	}, nil
}

// LoadConfigFromFile loads configuration from a JSON file at the given path.
// It returns an error if the file cannot be read or parsed.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &config, nil
}

// FindProjectConfig searches for a .teleview.json config file. It
// starts in the current directory and walks up looking for the file,
// stopping when it finds a .git directory (project root) or reaches root.
func FindProjectConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		configPath := filepath.Join(dir, ".teleview.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		// Stop at repo root even when no config was found.
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// GlobalConfigPath returns the path to the global config file,
// ~/.config/teleview/config.json.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "teleview", "config.json")
}

// MergeConfigs merges two configs with the overlay taking precedence.
// Fields set in overlay override corresponding fields in base.
func MergeConfigs(base, overlay *Config) *Config {
	if base == nil {
		base = &Config{}
	}
	if overlay == nil {
		return base
	}

	merged := *base

	if overlay.WindowTitle != "" {
		merged.WindowTitle = overlay.WindowTitle
	}
	if overlay.TileID != "" {
		merged.TileID = overlay.TileID
	}
	if overlay.TabID != "" {
		merged.TabID = overlay.TabID
	}
	if overlay.TickInterval != "" {
		merged.TickInterval = overlay.TickInterval
	}
	if overlay.GraphMaxSamples > 0 {
		merged.GraphMaxSamples = overlay.GraphMaxSamples
	}

	if overlay.OTLPHost != "" {
		merged.OTLPHost = overlay.OTLPHost
	}
	if overlay.OTLPPort > 0 {
		merged.OTLPPort = overlay.OTLPPort
	}
	if overlay.OTLPTab != "" {
		merged.OTLPTab = overlay.OTLPTab
	}

	if overlay.WebUIHost != "" {
		merged.WebUIHost = overlay.WebUIHost
	}
	if overlay.WebUIPort > 0 {
		merged.WebUIPort = overlay.WebUIPort
	}

	if overlay.FeedDirectory != "" {
		merged.FeedDirectory = overlay.FeedDirectory
	}

	if overlay.Verbose {
		merged.Verbose = overlay.Verbose
	}

	return &merged
}

// LoadEffectiveConfig loads the effective configuration by merging:
//  1. Built-in defaults
//  2. Global config file (if exists)
//  3. Project config file (if exists and no explicit path)
//  4. Explicit config file (if specified via configPath)
//  5. TELEVIEW_* environment variables
//
// Later sources override earlier ones.
func LoadEffectiveConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Layer 2: global config is optional; errors are ignored.
	globalPath := GlobalConfigPath()
	if globalPath != "" {
		if globalCfg, err := LoadConfigFromFile(globalPath); err == nil {
			config = MergeConfigs(config, globalCfg)
		}
	}

	// Layer 3/4: project config, or the explicitly named file.
	if configPath == "" {
		if projectPath, err := FindProjectConfig(); err == nil {
			projectCfg, err := LoadConfigFromFile(projectPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load project config: %w", err)
			}
			config = MergeConfigs(config, projectCfg)
		}
	} else {
		explicitCfg, err := LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = MergeConfigs(config, explicitCfg)
	}

	// Layer 5: environment overlay.
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}

	return config, nil
}
