package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// ReorderOperations ensures every node appears after every node it reads,
// moving violators earlier via Graph.MoveNodeTo. Insertion order already
// guarantees this for hand-built graphs, but passes that rewire edges
// in place (store-to-load forwarding, fusion) can introduce a forward
// reference that this pass repairs.
func ReorderOperations(g *ir.Graph) error {
	// UpdateGraph recomputes every node's Index before it validates the
	// result, so the forward references this pass exists to repair are
	// exactly the violation it would otherwise return. Index is already
	// fresh regardless of the error, so that error is intentionally
	// discarded here; the final call below propagates it once converged.
	_ = g.UpdateGraph()
	nodes := g.AllNodes()
	relocated := 0
	for pass := 0; pass < len(nodes)+1; pass++ {
		_ = g.UpdateGraph()
		moved := false
		for _, n := range g.AllNodes() {
			for _, src := range n.Args().All() {
				if src.Index() <= n.Index() {
					continue
				}
				if err := relocateBefore(g, src, n); err != nil {
					return err
				}
				moved = true
				relocated++
			}
		}
		if !moved {
			tflog.Log.Debug().Int("relocated", relocated).Msg("reordered out-of-order dependencies")
			return g.UpdateGraph()
		}
	}
	return newError("ReorderOperations", "dependency cycle did not converge", ErrUnresolvableOrder)
}

// relocateBefore moves src to become the sibling immediately before the
// ancestor-or-self of consumer that lives directly inside their common
// scope, placing the dependency just ahead of the earliest point in the
// tree that can see it.
func relocateBefore(g *ir.Graph, src, consumer *ir.Node) error {
	common, err := src.GetCommonParent(consumer)
	if err != nil {
		return newError("ReorderOperations", "dependency and consumer share no scope", err)
	}
	anchor := consumer
	for anchor.Parent() != common {
		anchor = anchor.Parent()
	}
	if anchor == src {
		return nil
	}
	return g.MoveNodeTo(src, common, anchor.Prev())
}
