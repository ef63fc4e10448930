package graph

import (
	"fmt"
	"strings"
)

// Node is one tree node to draw.
type Node struct {
	Path  string
	Value *string
}

// Overlay marks nodes to highlight, such as the result of a match.
type Overlay struct {
	Matched []string
}

// GenerateMermaid produces a Mermaid flowchart of the tree in nodes, which
// must be in tree order with every parent before its children.
// Shapes:
// - Top node: ((Circle))
// - Node with a value: ("Rounded")
// - Node without a value: [Rectangle]
// Parents missing from nodes are linked to the nearest ancestor present.
func GenerateMermaid(nodes []Node, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[string]string, len(nodes))
	for i, node := range nodes {
		id := fmt.Sprintf("n%d", i)
		ids[node.Path] = id

		parent, ok := nearest(ids, node.Path)
		label := escapeLabel(Label(node.Path))
		switch {
		case !ok:
			sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", id, escapeLabel(node.Path)))
		case node.Value != nil:
			sb.WriteString(fmt.Sprintf("    %s(\"%s = %s\")\n", id, label, escapeLabel(*node.Value)))
		default:
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, label))
		}
		if ok {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", parent, id))
		}
	}

	if overlay != nil && len(overlay.Matched) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef matched fill:#ffeb3b,stroke:#fbc02d,stroke-width:3px,color:#000;\n")
		seen := make(map[string]bool)
		for _, p := range overlay.Matched {
			id, ok := ids[p]
			if ok && !seen[id] {
				seen[id] = true
				sb.WriteString(fmt.Sprintf("    class %s matched;\n", id))
			}
		}
	}

	return sb.String()
}

// nearest returns the id of the closest ancestor of p already drawn.
func nearest(ids map[string]string, p string) (string, bool) {
	for {
		parent := Parent(p)
		if parent == p {
			return "", false
		}
		if id, ok := ids[parent]; ok {
			return id, true
		}
		p = parent
	}
}

// Parent returns the path of the parent of p, or p itself for the root.
// Slashes inside brackets or escaped with a backslash do not separate
// segments.
func Parent(p string) string {
	i := lastSeparator(p)
	if i <= 0 {
		if p == "/" || i < 0 {
			return p
		}
		return "/"
	}
	return p[:i]
}

// Label returns the last segment of p.
func Label(p string) string {
	return p[lastSeparator(p)+1:]
}

func lastSeparator(p string) int {
	last, depth := -1, 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
		case '/':
			if depth == 0 {
				last = i
			}
		}
	}
	return last
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
