// Package viz renders snapshot data as compact plain text for
// terminal-bound consumers, mainly the MCP resources. Everything here
// takes immutable snapshot types and returns strings; no state, no
// goroutines.
package viz

import (
	"fmt"
	"strings"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// sparkLevels maps normalized sample magnitude to a block character.
var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders samples as one line of block characters, width
// runes wide. AutoScale graphs scale to the sample range; manual
// graphs clamp to the configured bounds. Width 0 uses default (40).
func Sparkline(samples []float64, config telemetry.GraphConfig, width int) string {
	if len(samples) == 0 {
		return ""
	}
	if width <= 0 {
		width = 40
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	min, max := config.ManualMin, config.ManualMax
	if config.AutoScale {
		min, max = samples[0], samples[0]
		for _, s := range samples {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
	}

	var b strings.Builder
	span := max - min
	for _, s := range samples {
		level := 0
		if span > 0 {
			level = int((s - min) / span * float64(len(sparkLevels)-1))
		}
		if level < 0 {
			level = 0
		}
		if level >= len(sparkLevels) {
			level = len(sparkLevels) - 1
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}

// GraphLine renders one graph as a labeled sparkline with its latest
// value and fill level.
func GraphLine(g telemetry.GraphSnapshot, width int) string {
	spark := Sparkline(g.Samples, g.Config, width)
	if spark == "" {
		spark = "(no samples)"
	}
	return fmt.Sprintf("%-24s %s  latest %.3f (%d/%d samples)",
		g.Key, spark, g.Latest, len(g.Samples), g.Config.MaxSamples)
}
