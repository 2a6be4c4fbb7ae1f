package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/reel/pkg/domain"
)

const endID = "END"

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart for a workflow graph.
// It applies semantic styling:
// - Entry: ((Circle))
// - Routed step: {Rhombus}
// - Default: [Rectangle]
// Static edges are solid, router-selected edges dotted. Every routed step may stop
// the run, so each one also gets a dotted edge to END.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range g.Names() {
		node, _ := g.Node(name)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == g.Entry():
			opener, closer = "((", "))"
		case node.Router != nil:
			opener, closer = "{", "}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, name, closer)
	}
	fmt.Fprintf(&sb, "    %s((\"end\"))\n", endID)

	routed := make(map[string]bool)
	for _, e := range g.Edges() {
		to := endID
		if e.To != domain.End {
			to = sanitizeMermaidID(e.To)
		}
		arrow := "-->"
		if e.Kind == domain.EdgeRouted {
			arrow = "-.->"
			routed[e.From] = routed[e.From] || e.To == domain.End
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, to)
	}
	for _, name := range g.Names() {
		if reachesEnd, ok := routed[name]; ok && !reachesEnd {
			fmt.Fprintf(&sb, "    %s -. \"stop\" .-> %s\n", sanitizeMermaidID(name), endID)
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	if id == domain.End {
		return endID
	}
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
