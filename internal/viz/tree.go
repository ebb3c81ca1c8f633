package viz

import (
	"fmt"
	"strings"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// StructureTree renders structure nodes depth-first, two spaces of
// indentation per level, starting from the given indent.
func StructureTree(nodes []telemetry.StructureNode, indent string) string {
	var b strings.Builder
	writeTree(&b, nodes, indent)
	return b.String()
}

func writeTree(b *strings.Builder, nodes []telemetry.StructureNode, indent string) {
	for _, n := range nodes {
		if n.Value != nil {
			fmt.Fprintf(b, "%s%s: %s\n", indent, n.Label, n.Value.String())
		} else {
			fmt.Fprintf(b, "%s%s\n", indent, n.Label)
		}
		if len(n.Children) > 0 {
			writeTree(b, n.Children, indent+"  ")
		}
	}
}
