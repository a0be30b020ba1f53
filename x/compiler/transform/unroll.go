package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compilerconfig"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// UnrollLoops replaces "loop" nodes whose trip count is a compile-time
// constant at or below cfg.LoopUnrollThreshold with that many inlined
// copies of the loop body, substituting a per-iteration constant for the
// loop's own iteration-variable node (its first child, if that child is
// a "dim_id"). Loops with a dynamic or over-threshold trip count, or a
// body containing its own nested scope, are left in place; nested-scope
// bodies aren't cloned by this pass.
func UnrollLoops(g *ir.Graph, cfg compilerconfig.Config) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	unrolled := 0
	for _, loop := range loopNodes(g) {
		did, err := tryUnroll(g, cfg, loop)
		if err != nil {
			return err
		}
		if did {
			unrolled++
		}
	}
	tflog.Log.Debug().Int("unrolled", unrolled).Msg("unrolled constant-trip loops")
	return g.UpdateGraph()
}

func loopNodes(g *ir.Graph) []*ir.Node {
	var out []*ir.Node
	for _, n := range g.AllNodes() {
		if n.Operation() != nil && n.Operation().Name == "loop" {
			out = append(out, n)
		}
	}
	return out
}

func directChildren(n *ir.Node) []*ir.Node {
	var out []*ir.Node
	for c := n.Child(); c != nil; c = c.Next() {
		out = append(out, c)
	}
	return out
}

func tryUnroll(g *ir.Graph, cfg compilerconfig.Config, loop *ir.Node) (bool, error) {
	tripNode, err := loop.Args().Get(ir.RoleInput, 0)
	if err != nil {
		return false, nil
	}
	trip, ok := tripNode.ConstantValue()
	if !ok || trip <= 0 || trip > cfg.LoopUnrollThreshold {
		return false, nil
	}

	direct := directChildren(loop)
	body := direct
	var loopVar *ir.Node
	if len(direct) > 0 && direct[0].Operation() != nil && direct[0].Operation().Name == "dim_id" {
		loopVar = direct[0]
		body = direct[1:]
	}
	for _, n := range body {
		if n.Child() != nil {
			return false, nil
		}
	}

	err = g.ExecuteExpressionAfter(loop, func() error {
		for i := 0; i < trip; i++ {
			iterConst, err := g.AddNode("const", dtype.Int, uint64(uint32(int32(i))), nil, "unroll_i")
			if err != nil {
				return err
			}
			substitute := map[*ir.Node]*ir.Node{}
			if loopVar != nil {
				substitute[loopVar] = iterConst
			}
			if _, err := cloneFlat(g, body, substitute); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if err := removeLoopScope(g, loop, direct); err != nil {
		return false, err
	}
	return true, nil
}

// cloneFlat duplicates nodes (already topologically ordered and free of
// nested scopes) into the graph's current cursor position, rewiring each
// clone's edges through substitute and the mapping built up as earlier
// nodes in the list are cloned.
func cloneFlat(g *ir.Graph, nodes []*ir.Node, substitute map[*ir.Node]*ir.Node) (map[*ir.Node]*ir.Node, error) {
	mapping := make(map[*ir.Node]*ir.Node, len(nodes)+len(substitute))
	for k, v := range substitute {
		mapping[k] = v
	}
	for _, n := range nodes {
		inputs := make(map[ir.ArgID]*ir.Node, len(n.Args().All()))
		for id, src := range n.Args().All() {
			if repl, ok := mapping[src]; ok {
				inputs[id] = repl
			} else {
				inputs[id] = src
			}
		}
		clone, err := g.AddNode(n.Operation().Name, n.OutputType(), n.Payload(), inputs, n.DebugName())
		if err != nil {
			return nil, err
		}
		mapping[n] = clone
	}
	return mapping, nil
}

// removeLoopScope deletes the original loop body and the loop node itself
// once its unrolled replacement is in place. Body nodes are removed in
// reverse declaration order so each one's internal consumers are already
// gone by the time it is removed; a remaining external consumer (a value
// computed in the loop body that something outside the loop still reads)
// surfaces as an error rather than silently leaving duplicated work in
// the graph.
func removeLoopScope(g *ir.Graph, loop *ir.Node, direct []*ir.Node) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	for i := len(direct) - 1; i >= 0; i-- {
		if err := g.RemoveNode(direct[i]); err != nil {
			return newError("UnrollLoops", "loop body value escapes the loop, cannot remove original", err)
		}
		if err := g.UpdateGraph(); err != nil {
			return err
		}
	}
	return g.RemoveNode(loop)
}
