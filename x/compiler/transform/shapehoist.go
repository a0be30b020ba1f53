package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/catalog"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// MoveShapeOutsideKernels hoists constant and static nodes that live
// directly inside a kernel scope but don't read any of the kernel's own
// per-invocation state out to the kernel's enclosing scope, immediately
// before it. This keeps shape arithmetic and loop bounds from being
// recomputed on every kernel invocation instead of once.
func MoveShapeOutsideKernels(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	hoisted := 0
	for _, kernel := range kernelNodes(g) {
		hoisted += hoistEligible(g, kernel)
	}
	tflog.Log.Debug().Int("hoisted", hoisted).Msg("hoisted shape nodes outside kernels")
	return g.UpdateGraph()
}

func hoistEligible(g *ir.Graph, kernel *ir.Node) int {
	moved := 0
	for cur := kernel.Child(); cur != nil; {
		next := cur.Next()
		if isHoistable(cur, kernel) {
			if err := g.MoveNodeTo(cur, kernel.Parent(), kernel.Prev()); err == nil {
				moved++
			}
		}
		cur = next
	}
	return moved
}

func isHoistable(n, kernel *ir.Node) bool {
	op := n.Operation()
	if op == nil {
		return false
	}
	switch op.Name {
	case "dim_id", "thread_id", "block_id", "block_thread_id":
		return false
	}
	if !n.IsConstantClass() && !op.Is(catalog.ClassStatic) {
		return false
	}
	for _, src := range n.Args().All() {
		if src.Parent() == kernel {
			return false
		}
	}
	return true
}
