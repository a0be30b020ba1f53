package transform

import (
	"fmt"

	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func isMemoryAccess(n *ir.Node) bool {
	op := n.Operation()
	if op == nil {
		return false
	}
	switch op.Name {
	case "load", "store", "set", "atomic_add", "atomic_max", "atomic_min":
		return true
	default:
		return false
	}
}

// AddMemoryOpIndices attaches a default RoleIndex edge, the kernel's own
// per-invocation "dim_id", to every memory-access node inside a kernel
// that doesn't already carry an explicit index. One dim_id node is
// reused per kernel rather than synthesised per access.
func AddMemoryOpIndices(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	indexed := 0
	for _, kernel := range kernelNodes(g) {
		var dimID *ir.Node
		for _, n := range kernelBody(kernel) {
			if !isMemoryAccess(n) || n.Args().Has(ir.RoleIndex, 0) {
				continue
			}
			if dimID == nil {
				var err error
				dimID, err = ensureDimID(g, kernel)
				if err != nil {
					return err
				}
			}
			if err := n.Args().Add(ir.ArgID{Role: ir.RoleIndex, Slot: 0}, dimID); err != nil {
				return err
			}
			indexed++
		}
	}
	tflog.Log.Debug().Int("indexed", indexed).Msg("attached default indices to memory accesses")
	return g.UpdateGraph()
}

func ensureDimID(g *ir.Graph, kernel *ir.Node) (*ir.Node, error) {
	for _, n := range kernelBody(kernel) {
		if n.Parent() == kernel && n.Operation() != nil && n.Operation().Name == "dim_id" {
			return n, nil
		}
	}
	var dimID *ir.Node
	var err error
	if kernel.Child() != nil {
		err = g.ExecuteExpressionBefore(kernel.Child(), func() error {
			var innerErr error
			dimID, innerErr = g.AddNode("dim_id", dtype.None, 0, nil, "idx")
			return innerErr
		})
	} else {
		err = g.ExecuteExpressionChild(kernel, func() error {
			var innerErr error
			dimID, innerErr = g.AddNode("dim_id", dtype.None, 0, nil, "idx")
			return innerErr
		})
	}
	return dimID, err
}

// FinalizeMemoryIndexing validates that every memory-access node in the
// graph now carries an index edge, failing loudly if AddMemoryOpIndices
// was skipped or a later pass stripped one.
func FinalizeMemoryIndexing(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	for _, n := range g.AllNodes() {
		if !isMemoryAccess(n) {
			continue
		}
		if !n.Args().Has(ir.RoleIndex, 0) {
			return newError("FinalizeMemoryIndexing", fmt.Sprintf("node %d missing an index edge", n.Index()), ir.ErrArgumentNotFound)
		}
	}
	return nil
}

// AddMemoryDeallocation inserts a "deallocate" node immediately after a
// "memory" declaration's last consumer in topological order, so the
// buffer pool can reclaim it as soon as nothing else will read it. Nodes
// marked ir.MemOutput are skipped: an output buffer outlives the compiled
// program and is never deallocated. When the last consumer is nested
// inside one or more "loop" bodies, the deallocate is placed after the
// outermost enclosing loop instead of inside it, so the buffer isn't
// freed and re-freed on every iteration.
func AddMemoryDeallocation(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	deallocated := 0
	for _, n := range g.AllNodes() {
		if n.Operation() == nil || n.Operation().Name != "memory" {
			continue
		}
		if n.MemoryType() == ir.MemOutput {
			continue
		}
		last := lastConsumerByIndex(n)
		if last == nil {
			continue
		}
		anchor := outermostEnclosingLoop(last)
		if anchor == nil {
			anchor = last
		}
		err := g.ExecuteExpressionAfter(anchor, func() error {
			_, innerErr := g.AddNode("deallocate", dtype.None, 0, map[ir.ArgID]*ir.Node{
				{Role: ir.RoleMemory, Slot: 0}: n,
			}, "dealloc")
			return innerErr
		})
		if err != nil {
			return err
		}
		deallocated++
	}
	tflog.Log.Debug().Int("deallocated", deallocated).Msg("inserted memory deallocations")
	return g.UpdateGraph()
}

// outermostEnclosingLoop returns the topmost ancestor "loop" node
// containing ctx, or nil if ctx is not nested in one.
func outermostEnclosingLoop(ctx *ir.Node) *ir.Node {
	var outermost *ir.Node
	for p := ctx.Parent(); p != nil; p = p.Parent() {
		if p.Operation() != nil && p.Operation().Name == "loop" {
			outermost = p
		}
	}
	return outermost
}

func lastConsumerByIndex(n *ir.Node) *ir.Node {
	var last *ir.Node
	for c := range n.Consumers() {
		if last == nil || c.Index() > last.Index() {
			last = c
		}
	}
	return last
}
