package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/validator"
)

// ValidationReport renders the findings of one graph file as markdown.
func ValidationReport(source string, g *domain.Graph, report validator.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", source)
	if len(report.Issues) == 0 {
		sb.WriteString("✅ No issues.\n")
		return sb.String()
	}

	if report.Valid() {
		fmt.Fprintf(&sb, "✅ Compilable, %d warning(s).\n\n", len(report.Warnings()))
	} else {
		fmt.Fprintf(&sb, "❌ %d fatal issue(s), %d warning(s).\n\n", len(report.Fatal()), len(report.Warnings()))
	}

	sb.WriteString("| Severity | Kind | Node | Message |\n|---|---|---|---|\n")
	for _, issue := range report.Issues {
		node := "-"
		if issue.NodeID != 0 {
			node = fmt.Sprintf("%d", issue.NodeID)
			if n, ok := g.Node(issue.NodeID); ok && n.Name != "" {
				node = fmt.Sprintf("%s (%d)", n.Name, n.ID)
			}
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", issue.Severity, issue.Kind, node, cell(issue.Message))
	}
	return sb.String()
}

// FlowReport renders a compiled flow, optionally with an instance state, as markdown.
func FlowReport(flow *compiler.Flow, state *domain.FlowState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Flow %s\n\n", flow.Name)
	fmt.Fprintf(&sb, "%d nodes, %d edges, format v%d.\n\n", len(flow.Nodes), len(flow.Edges), flow.Version)

	sb.WriteString("| # | Name | Kind | Behavior | Next |\n|---|---|---|---|---|\n")
	for _, n := range flow.Nodes {
		var next []string
		for i, target := range n.Next {
			if target == compiler.NoTarget || !n.Outputs[i].Type.IsExec() {
				continue
			}
			next = append(next, fmt.Sprintf("%s→%d", n.Outputs[i].Name, target))
		}
		marker := ""
		if state != nil && state.Current == n.Index {
			marker = " ▶"
		}
		fmt.Fprintf(&sb, "| %d%s | %s | %s | %s | %s |\n",
			n.Index, marker, cell(n.Name), n.Kind, cell(n.Payload.Behavior), strings.Join(next, ", "))
	}

	if len(flow.Variables) > 0 {
		sb.WriteString("\n## Variables\n\n")
		for _, name := range domain.SortedKeys(flow.Variables) {
			fmt.Fprintf(&sb, "- `%s`: %s\n", name, flow.Variables[name])
		}
	}
	if len(flow.Events) > 0 {
		sb.WriteString("\n## Events\n\n")
		for _, name := range domain.SortedKeys(flow.Events) {
			fields := flow.Events[name]
			parts := make([]string, 0, len(fields))
			for _, f := range domain.SortedKeys(fields) {
				parts = append(parts, f+": "+fields[f])
			}
			fmt.Fprintf(&sb, "- `%s` {%s}\n", name, strings.Join(parts, ", "))
		}
	}

	if state != nil {
		sb.WriteString("\n## Instance\n\n")
		fmt.Fprintf(&sb, "- id: `%s`\n- status: %s\n- steps: %d\n", state.InstanceID, state.Status, state.Steps)
		for _, k := range domain.SortedKeys(state.Variables) {
			fmt.Fprintf(&sb, "- `%s` = %v\n", k, state.Variables[k])
		}
	}
	return sb.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
