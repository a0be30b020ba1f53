package ir

import (
	"fmt"
	"strings"

	"github.com/tensorfrost-go/tfcore/internal/tflog"
)

// Listing renders the graph as indented debug text, one line per node, in
// tree declaration order (parent/child/prev/next) rather than the
// topological order UpdateGraph computes.
func (g *Graph) Listing() string {
	var b strings.Builder
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		for cur := n; cur != nil; cur = cur.next {
			writeNodeLine(&b, cur, depth)
			if cur.child != nil {
				walk(cur.child, depth+1)
			}
		}
	}
	walk(g.root, 0)
	return b.String()
}

func writeNodeLine(b *strings.Builder, n *Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	name := n.debugName
	if name == "" {
		name = "<unnamed>"
	}
	opName := "?"
	if n.op != nil {
		opName = n.op.Name
	}
	fmt.Fprintf(b, "#%d %s = %s(", n.index, name, opName)
	first := true
	for id, src := range n.args.All() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(b, "%s%d:#%d", id.Role, id.Slot, src.index)
	}
	b.WriteString(")\n")
}

// PrintListing logs the graph listing at debug level, for interactive
// debugging of a compile pipeline.
func (g *Graph) PrintListing() {
	tflog.Log.Debug().Msg("\n" + g.Listing())
}
