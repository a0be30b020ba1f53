package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// RemoveUnusedOperations runs dead-code elimination to a fixpoint: any
// leaf node (no children) with no remaining consumers and no side effect
// (not a memory op, not structural control flow) is removed, which can
// in turn make its own inputs unused.
func RemoveUnusedOperations(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	removed := 0
	for {
		changed := false
		for _, n := range g.AllNodes() {
			if n.Detached() || n.Child() != nil || hasSideEffect(n) {
				continue
			}
			if len(n.Consumers()) != 0 {
				continue
			}
			if err := g.RemoveNode(n); err == nil {
				changed = true
				removed++
			}
		}
		if !changed {
			tflog.Log.Debug().Int("removed", removed).Msg("dead-code elimination removed unused operations")
			return nil
		}
		if err := g.UpdateGraph(); err != nil {
			return err
		}
	}
}

func hasSideEffect(n *ir.Node) bool {
	if n.IsMemoryOp() {
		return true
	}
	op := n.Operation()
	return op != nil && (op.Name == "kernel" || op.Name == "loop" || op.Name == "if")
}

// RemoveUnusedKernels removes "kernel" scope nodes that RemoveUnusedOperations
// has already emptied of every child.
func RemoveUnusedKernels(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	removed := 0
	for _, kernel := range kernelNodes(g) {
		if kernel.Child() == nil {
			if err := g.RemoveNode(kernel); err == nil {
				removed++
			}
		}
	}
	tflog.Log.Debug().Int("removed", removed).Msg("dead-code elimination removed empty kernels")
	return g.UpdateGraph()
}
