package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compilerconfig"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// InsertAlgorithmicPrimitives expands "dot" nodes into an explicit
// loop + load + multiply + atomic-accumulate sequence: the primitive
// operations a kernel can actually dispatch. Without a shape-inference
// pass to size the reduction from the operands' own dimensions, the
// loop trip count falls back to cfg.DefaultShapeFill; a later pass can
// tighten this once shapes are resolved. matmul is left alone here — its
// two nested reductions need that same sizing information plus an output
// index per row/column pair, more than this single-reduction lowering
// covers — and is a documented gap rather than a guess.
func InsertAlgorithmicPrimitives(g *ir.Graph, cfg compilerconfig.Config) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	nodes := dotNodes(g)
	for _, n := range nodes {
		if err := expandDot(g, cfg, n); err != nil {
			return err
		}
	}
	tflog.Log.Debug().Int("expanded", len(nodes)).Msg("expanded dot primitives into loops")
	return g.UpdateGraph()
}

func dotNodes(g *ir.Graph) []*ir.Node {
	var out []*ir.Node
	for _, n := range g.AllNodes() {
		if n.Operation() != nil && n.Operation().Name == "dot" {
			out = append(out, n)
		}
	}
	return out
}

func expandDot(g *ir.Graph, cfg compilerconfig.Config, dot *ir.Node) error {
	a, err := dot.Args().Get(ir.RoleInput, 0)
	if err != nil {
		return err
	}
	b, err := dot.Args().Get(ir.RoleInput, 1)
	if err != nil {
		return err
	}

	var result *ir.Node
	err = g.ExecuteExpressionBefore(dot, func() error {
		acc, err := g.AddNode("memory", dot.OutputType(), 0, nil, "dot_acc")
		if err != nil {
			return err
		}
		// Multiple dot nodes reducing over the same operand share one trip
		// constant rather than each synthesising their own.
		trip, cached := g.ShapeDimNode(a, 0)
		if !cached {
			trip, err = g.AddNode("const", dtype.Int, uint64(uint32(int32(cfg.DefaultShapeFill))), nil, "dot_trip")
			if err != nil {
				return err
			}
			g.SetShapeDimNode(a, 0, trip)
		}
		loop, err := g.AddNode("loop", dtype.None, 0, map[ir.ArgID]*ir.Node{
			{Role: ir.RoleInput, Slot: 0}: trip,
		}, "dot_loop")
		if err != nil {
			return err
		}

		err = g.ExecuteExpressionChild(loop, func() error {
			idx, err := g.AddNode("dim_id", dtype.None, 0, nil, "dot_i")
			if err != nil {
				return err
			}
			la, err := g.AddNode("load", dtype.None, 0, map[ir.ArgID]*ir.Node{
				{Role: ir.RoleInput, Slot: 0}: a,
				{Role: ir.RoleIndex, Slot: 0}: idx,
			}, "dot_load_a")
			if err != nil {
				return err
			}
			lb, err := g.AddNode("load", dtype.None, 0, map[ir.ArgID]*ir.Node{
				{Role: ir.RoleInput, Slot: 0}: b,
				{Role: ir.RoleIndex, Slot: 0}: idx,
			}, "dot_load_b")
			if err != nil {
				return err
			}
			prod, err := g.AddNode("mul", dtype.None, 0, map[ir.ArgID]*ir.Node{
				{Role: ir.RoleInput, Slot: 0}: la,
				{Role: ir.RoleInput, Slot: 1}: lb,
			}, "dot_prod")
			if err != nil {
				return err
			}
			_, err = g.AddNode("atomic_add", dtype.None, 0, map[ir.ArgID]*ir.Node{
				{Role: ir.RoleInput, Slot: 0}:  prod,
				{Role: ir.RoleMemory, Slot: 0}: acc,
				{Role: ir.RoleIndex, Slot: 0}:  idx,
			}, "dot_acc_add")
			return err
		})
		if err != nil {
			return err
		}

		result, err = g.AddNode("load", dot.OutputType(), 0, map[ir.ArgID]*ir.Node{
			{Role: ir.RoleInput, Slot: 0}: acc,
		}, "dot_result")
		return err
	})
	if err != nil {
		return err
	}

	dot.MakeOutputsUseGivenNode(result, 0, false)
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	return g.RemoveNode(dot)
}
