package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
// Indices are compiled node indices; a negative Current means none.
type GraphOverlay struct {
	Visited []int
	Current int
}

// OverlayOf builds the overlay of a flow state.
func OverlayOf(state *domain.FlowState) *GraphOverlay {
	if state == nil {
		return nil
	}
	return &GraphOverlay{Visited: state.History, Current: state.Current}
}

// GenerateMermaid produces a Mermaid flowchart of a compiled flow.
// It applies semantic styling:
// - Entry: ((Circle))
// - Condition: {Rhombus}
// - Action: [[Subroutine]]
// - Exit: ([Stadium])
// - State: [Rectangle]
// Execution edges are solid and labelled with the output port when it is
// not "out"; value edges are dotted. Overlay styles (visited/current) are
// applied if provided.
func GenerateMermaid(flow *compiler.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range flow.Nodes {
		opener, closer := "[", "]"
		switch node.Kind {
		case domain.KindEntry:
			opener, closer = "((", "))"
		case domain.KindCondition:
			opener, closer = "{", "}"
		case domain.KindAction:
			opener, closer = "[[", "]]"
		case domain.KindExit:
			opener, closer = "([", "])"
		}

		label := escape(labelOf(node))
		if node.Payload.Behavior != "" {
			label += "<br/><i>" + escape(node.Payload.Behavior) + "</i>"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(node.Index), opener, label, closer)
	}

	for _, e := range flow.Edges {
		from := flow.Nodes[e.From]
		out := from.Outputs[e.FromPort]
		if out.Type.IsExec() {
			if out.Name == "out" {
				fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(e.From), mermaidID(e.To))
			} else {
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", mermaidID(e.From), escape(out.Name), mermaidID(e.To))
			}
			continue
		}
		in := flow.Nodes[e.To].Inputs[e.ToPort]
		fmt.Fprintf(&sb, "    %s -. \"%s → %s\" .-> %s\n",
			mermaidID(e.From), escape(out.Name), escape(in.Name), mermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[int]bool)
		for _, idx := range overlay.Visited {
			if seen[idx] || idx < 0 || idx >= len(flow.Nodes) {
				continue
			}
			seen[idx] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", mermaidID(idx))
		}
		if overlay.Current >= 0 && overlay.Current < len(flow.Nodes) {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func labelOf(n compiler.CompiledNode) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("#%d %s", n.Index, n.Kind)
}

// mermaidID names nodes by index, so arbitrary node names never need sanitizing.
func mermaidID(index int) string {
	return fmt.Sprintf("n%d", index)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
