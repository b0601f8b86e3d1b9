package arg

import (
	"fmt"
	"io"
	"strings"
)

// WriteDot writes the ARG in Graphviz DOT format. Targets are drawn red,
// covered nodes dashed, and coverings as dotted edges.
func (g *ARG[S, A]) WriteDot(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("digraph ARG {\n")
	sb.WriteString("  node [shape=box, fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\"];\n\n")

	for _, n := range g.nodes {
		var attrs []string
		switch {
		case n.target:
			attrs = append(attrs, "color=red")
		case n.IsCovered():
			attrs = append(attrs, "style=dashed")
		}
		if n.IsRoot() {
			attrs = append(attrs, "peripheries=2")
		}
		extra := ""
		if len(attrs) > 0 {
			extra = ", " + strings.Join(attrs, ", ")
		}
		fmt.Fprintf(&sb, "  n%d [label=\"%d: %s\"%s];\n", n.id, n.id, escape(fmt.Sprint(n.state)), extra)
	}
	sb.WriteString("\n")

	for _, e := range g.edges {
		fmt.Fprintf(&sb, "  n%d -> n%d [label=\"%s\"];\n", e.Source, e.Target, escape(fmt.Sprint(e.Action)))
	}
	for _, n := range g.nodes {
		if n.IsCovered() {
			fmt.Fprintf(&sb, "  n%d -> n%d [style=dotted, arrowhead=empty];\n", n.id, n.coveredBy)
		}
	}

	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
