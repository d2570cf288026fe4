package graph

import (
	"fmt"
	"io"
)

// Fprint dumps the topology, one line per node in insertion order:
//
//	NODE A --> a b c
func (g *Graph) Fprint(w io.Writer) {
	for _, n := range g.nodes {
		fmt.Fprintf(w, "NODE %s -->", n.Label)
		for _, child := range n.Children {
			fmt.Fprintf(w, " %s", child.Label)
		}
		fmt.Fprintln(w)
	}
}
