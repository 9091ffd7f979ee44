package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// renderDefinition formats a definition's tables for the terminal
func renderDefinition(g *synthdef.CompiledGraph) string {
	nodeIdx := g.NodeIndex()
	constIdx := g.ConstantIndex()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(g.Name))
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d nodes, %d constants, %d controls",
		len(g.Nodes), len(g.Constants), len(g.Controls))))
	sb.WriteString("\n\n")

	if len(g.Constants) > 0 {
		var lines []string
		for i, c := range g.Constants {
			lines = append(lines, fmt.Sprintf("c%-3d %g", i, c.Value))
		}
		sb.WriteString(section("Constants", lines))
	}

	if len(g.Controls) > 0 {
		var lines []string
		for i, d := range g.Controls {
			name := d.Name
			if name == "" {
				name = dimStyle.Render("(unnamed)")
			}
			lines = append(lines, fmt.Sprintf("p%-3d %s = %g %s", i, name, d.Default, dimStyle.Render(d.Rate.String())))
		}
		sb.WriteString(section("Controls", lines))
	}

	var lines []string
	for i, n := range g.Nodes {
		ins := make([]string, len(n.UGen.Inputs))
		for j, in := range n.UGen.Inputs {
			switch v := in.(type) {
			case ugen.OutputRef:
				ins[j] = fmt.Sprintf("n%d:%d", nodeIdx[v.Node], v.Index)
			case *ugen.Constant:
				ins[j] = fmt.Sprintf("c%d", constIdx[g.Policy.Key(v)])
			}
		}
		outs := make([]string, len(n.UGen.Outputs))
		for j, r := range n.UGen.Outputs {
			outs[j] = r.String()
		}
		line := fmt.Sprintf("n%-3d %s.%s", i, n.UGen.Op, n.UGen.Rate)
		if n.Special != 0 {
			line += fmt.Sprintf(" special=%d", n.Special)
		}
		line += fmt.Sprintf(" (%s) -> [%s]", strings.Join(ins, ", "), strings.Join(outs, ", "))
		lines = append(lines, line)
	}
	sb.WriteString(section("Nodes", lines))
	return sb.String()
}

func section(title string, lines []string) string {
	return headerStyle.Render(title) + "\n" + boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}
