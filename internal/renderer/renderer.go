// Package renderer turns finished graph trees into artifacts: Graphviz
// DOT (and SVG through the dot executable), Mermaid flowchart markup, a
// JSON document mirroring the node model and a Markdown summary. Every
// renderer reads the model through the same traversal, so all formats
// show nodes in declaration order.
package renderer

import "fmt"

// Format names an output format on the CLI and the MCP surface.
type Format string

const (
	FormatGraphviz Format = "graphviz"
	FormatMermaid  Format = "mermaid-flowchart"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatGraphviz, FormatMermaid, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown renderer %q, expected %s, %s or %s",
			s, FormatGraphviz, FormatMermaid, FormatJSON)
	}
}

// label prefixes per task category, matching what the interactive
// formats show in front of task names.
const (
	prefixPreTask  = "[pre_task] "
	prefixPostTask = "[post_task] "
	prefixHandler  = "[handler] "
)
