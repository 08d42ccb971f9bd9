package ast

import (
	"fmt"
	"io"
	"strings"
)

// WriteDot renders the tree rooted at root as a Graphviz digraph.
func WriteDot(w io.Writer, root *Node) error {
	var sb strings.Builder
	sb.WriteString("digraph AST {\n")
	sb.WriteString("    node [shape=box, fontname=\"monospace\"];\n")

	ids := make(map[*Node]string)
	for i, e := range Flatten(root) {
		id := fmt.Sprintf("n%d", i+1)
		ids[e.Node] = id
		label := e.Node.String()
		if e.Node.Typ != nil {
			label += "\\n: " + e.Node.Typ.Name
		}
		fmt.Fprintf(&sb, "    %s [label=\"%s\"];\n", id, strings.ReplaceAll(label, "\"", "\\\""))
	}
	for _, e := range Flatten(root) {
		WalkChildren(e.Node, func(c *Node) {
			fmt.Fprintf(&sb, "    %s -> %s;\n", ids[e.Node], ids[c])
		})
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
