package graph

import (
	"fmt"
	"strings"
)

// DOT renders the graph in Graphviz DOT form: one box per declaration,
// one edge per dependency, pointing from the dependency to its
// dependent. Output is stable: nodes and edges appear in address order.
func (g *Graph) DOT() string {
	var sb strings.Builder

	sb.WriteString("digraph dependencies {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=\"filled,rounded\"];\n\n")

	ids := g.NodeIDs()
	for _, id := range ids {
		n := g.nodes[id]
		sb.WriteString(fmt.Sprintf("  %q [fillcolor=%q];\n", id, kindColor(n.kind)))
	}
	sb.WriteString("\n")

	for _, id := range ids {
		n := g.nodes[id]
		for _, dep := range n.sortedDeps() {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep.ID(), id))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func kindColor(k NodeKind) string {
	switch k {
	case VariableNode:
		return "lightyellow"
	case LocalNode:
		return "lightgrey"
	case ResourceNode:
		return "lightblue"
	case OutputNode:
		return "palegreen"
	default:
		return "white"
	}
}
