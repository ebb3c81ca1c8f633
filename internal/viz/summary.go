package viz

import (
	"fmt"
	"strings"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// TileSummary renders a horizontal bar chart of tiles weighted by how
// much content each one carries.
func TileSummary(tiles []telemetry.TileSnapshot) string {
	if len(tiles) == 0 {
		return ""
	}

	counts := make([]int, len(tiles))
	total := 0
	maxCount := 0
	maxNameLen := 0
	for i, tile := range tiles {
		counts[i] = storeEntryCount(tile.Store)
		total += counts[i]
		if counts[i] > maxCount {
			maxCount = counts[i]
		}
		if len(tile.ID) > maxNameLen {
			maxNameLen = len(tile.ID)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tiles (%d active, %d entries)\n", len(tiles), total)

	barBudget := 20
	for i, tile := range tiles {
		name := tile.ID
		if len(name) > maxNameLen {
			name = name[:maxNameLen-1] + "…"
		}
		paddedName := fmt.Sprintf("%-*s", maxNameLen, name)

		barLen := 0
		if maxCount > 0 {
			barLen = counts[i] * barBudget / maxCount
		}
		if barLen < 1 && counts[i] > 0 {
			barLen = 1
		}
		bar := strings.Repeat("#", barLen)
		barPad := strings.Repeat(" ", barBudget-barLen)

		fmt.Fprintf(&b, "  %s  %s%s  %d entries, %d tabs\n",
			paddedName, bar, barPad, counts[i], len(tile.Store.Tabs))
	}

	return b.String()
}

// GraphFill renders one graph's sample retention as a fill-level bar.
func GraphFill(label string, count, capacity int) string {
	barWidth := 20
	filled := 0
	if capacity > 0 {
		filled = count * barWidth / capacity
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	paddedLabel := fmt.Sprintf("%-8s", label)
	return fmt.Sprintf("  %s [%s]  %s / %s", paddedLabel, bar, formatCount(count), formatCount(capacity))
}

// storeEntryCount counts scalars, graphs, and structures across all
// tabs of a store, nested tiles included.
func storeEntryCount(store telemetry.StoreSnapshot) int {
	count := 0
	for _, tab := range store.Tabs {
		count += len(tab.Scalars) + len(tab.Graphs) + len(tab.Structures)
	}
	for _, tile := range store.Tiles {
		count += storeEntryCount(tile.Store)
	}
	return count
}

func formatCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1_000_000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1_000_000, (n%1_000_000)/1000, n%1000)
}
