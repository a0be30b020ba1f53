package transform

import (
	"sort"

	"github.com/chewxy/math32"

	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/catalog"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// ComputeAutodiff resolves every "backwards_grad(output, target)" request
// node into explicit gradient-accumulation nodes, reverse-mode over the
// subgraph feeding output. ClassNondiff operations (including
// "detach_grad") block gradient flow into their inputs; fan-out nodes
// accumulate contributions from every consuming path with "add". Requests
// for a target that lies outside output's dependency chain resolve to a
// zero constant. Operations with no gradient rule below simply don't
// propagate past themselves — a documented gap rather than a guess.
func ComputeAutodiff(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	requests := backwardsGradRequests(g)
	for _, req := range requests {
		targetGrad, err := buildBackwardsGrad(g, req)
		if err != nil {
			return err
		}
		req.MakeOutputsUseGivenNode(targetGrad, 0, false)
		if err := g.UpdateGraph(); err != nil {
			return err
		}
		if err := g.RemoveNode(req); err != nil {
			return newError("ComputeAutodiff", "backwards_grad request still has consumers after rewiring", err)
		}
	}
	tflog.Log.Debug().Int("requests", len(requests)).Msg("resolved backwards_grad requests")
	return g.UpdateGraph()
}

func backwardsGradRequests(g *ir.Graph) []*ir.Node {
	var out []*ir.Node
	for _, n := range g.AllNodes() {
		if n.Operation() != nil && n.Operation().Name == "backwards_grad" {
			out = append(out, n)
		}
	}
	return out
}

func buildBackwardsGrad(g *ir.Graph, req *ir.Node) (*ir.Node, error) {
	output, err := req.Args().Get(ir.RoleInput, 0)
	if err != nil {
		return nil, err
	}
	target, err := req.Args().Get(ir.RoleInput, 1)
	if err != nil {
		return nil, err
	}

	order := ancestorsInTopologicalOrder(output)

	var targetGrad *ir.Node
	err = g.ExecuteExpressionBefore(req, func() error {
		grads := map[*ir.Node]*ir.Node{}
		seed, err := g.AddNode("const", dtype.Float, uint64(math32.Float32bits(1)), nil, "grad_seed")
		if err != nil {
			return err
		}
		grads[output] = seed

		for i := len(order) - 1; i >= 0; i-- {
			n := order[i]
			grad, ok := grads[n]
			if !ok || blocksGradient(n) {
				continue
			}
			if err := propagate(g, grads, n, grad); err != nil {
				return err
			}
		}

		targetGrad = grads[target]
		if targetGrad == nil {
			targetGrad, err = g.AddNode("const", dtype.Float, 0, nil, "grad_zero")
			if err != nil {
				return err
			}
		}
		return nil
	})
	return targetGrad, err
}

// ancestorsInTopologicalOrder returns value and every node it depends on
// through Input edges, ordered so each node precedes its consumers (the
// order ComputeAutodiff walks backwards to accumulate gradients).
func ancestorsInTopologicalOrder(value *ir.Node) []*ir.Node {
	seen := map[*ir.Node]bool{}
	var out []*ir.Node
	var visit func(n *ir.Node)
	visit = func(n *ir.Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for id, src := range n.Args().All() {
			if id.Role == ir.RoleInput {
				visit(src)
			}
		}
		out = append(out, n)
	}
	visit(value)
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

func blocksGradient(n *ir.Node) bool {
	op := n.Operation()
	return op == nil || op.Is(catalog.ClassNondiff)
}

func accumulate(g *ir.Graph, grads map[*ir.Node]*ir.Node, target, contribution *ir.Node) error {
	if target == nil || contribution == nil {
		return nil
	}
	existing, ok := grads[target]
	if !ok {
		grads[target] = contribution
		return nil
	}
	summed, err := g.AddNode("add", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: existing,
		{Role: ir.RoleInput, Slot: 1}: contribution,
	}, "grad_accum")
	if err != nil {
		return err
	}
	grads[target] = summed
	return nil
}

// propagate applies the local gradient rule for n's operation, pushing
// each input's contribution through accumulate. Ops with no rule here
// (comparisons, matmul/dot, conversions, among others) simply don't
// propagate further.
func propagate(g *ir.Graph, grads map[*ir.Node]*ir.Node, n, grad *ir.Node) error {
	op := n.Operation()
	if op == nil {
		return nil
	}
	in := func(slot int) *ir.Node {
		v, _ := n.Args().Get(ir.RoleInput, slot)
		return v
	}
	mk := func(opName string, a, b *ir.Node, debugName string) (*ir.Node, error) {
		inputs := map[ir.ArgID]*ir.Node{{Role: ir.RoleInput, Slot: 0}: a}
		if b != nil {
			inputs[ir.ArgID{Role: ir.RoleInput, Slot: 1}] = b
		}
		return g.AddNode(opName, dtype.None, 0, inputs, debugName)
	}

	switch op.Name {
	case "add":
		if err := accumulate(g, grads, in(0), grad); err != nil {
			return err
		}
		return accumulate(g, grads, in(1), grad)

	case "sub":
		if err := accumulate(g, grads, in(0), grad); err != nil {
			return err
		}
		negGrad, err := mk("neg", grad, nil, "grad_neg")
		if err != nil {
			return err
		}
		return accumulate(g, grads, in(1), negGrad)

	case "mul":
		x0, x1 := in(0), in(1)
		dx0, err := mk("mul", grad, x1, "grad_mul0")
		if err != nil {
			return err
		}
		dx1, err := mk("mul", grad, x0, "grad_mul1")
		if err != nil {
			return err
		}
		if err := accumulate(g, grads, x0, dx0); err != nil {
			return err
		}
		return accumulate(g, grads, x1, dx1)

	case "div":
		x0, x1 := in(0), in(1)
		dx0, err := mk("div", grad, x1, "grad_div0")
		if err != nil {
			return err
		}
		prod, err := mk("mul", dx0, n, "grad_div1_raw")
		if err != nil {
			return err
		}
		dx1, err := mk("neg", prod, nil, "grad_div1")
		if err != nil {
			return err
		}
		if err := accumulate(g, grads, x0, dx0); err != nil {
			return err
		}
		return accumulate(g, grads, x1, dx1)

	case "neg":
		negGrad, err := mk("neg", grad, nil, "grad_neg")
		if err != nil {
			return err
		}
		return accumulate(g, grads, in(0), negGrad)

	case "exp":
		dx, err := mk("mul", grad, n, "grad_exp")
		if err != nil {
			return err
		}
		return accumulate(g, grads, in(0), dx)

	case "log":
		dx, err := mk("div", grad, in(0), "grad_log")
		if err != nil {
			return err
		}
		return accumulate(g, grads, in(0), dx)

	case "sqrt":
		twoN, err := mk("add", n, n, "grad_sqrt_2n")
		if err != nil {
			return err
		}
		dx, err := mk("div", grad, twoN, "grad_sqrt")
		if err != nil {
			return err
		}
		return accumulate(g, grads, in(0), dx)

	case "pass_grad":
		return accumulate(g, grads, in(1), grad)

	case "dim_sum", "dim_max", "dim_min":
		// Reduction collapses an axis to a scalar: the upstream gradient
		// broadcasts back across every element that fed it. Without a
		// shape-inference stage to address individual elements, the
		// broadcast is the identity — the same gradient value is handed
		// to the whole reduced input, exactly as Sum's VJP does for every
		// element along the reduced axis.
		return accumulate(g, grads, in(0), grad)

	case "dim_mean":
		// Same broadcast as dim_sum, scaled by the axis size when one is
		// available as a RoleShape edge; otherwise fall back to the
		// unscaled broadcast dim_sum uses, since no count is known here.
		if count, err := n.Args().Get(ir.RoleShape, 0); err == nil {
			scaled, err := mk("div", grad, count, "grad_mean")
			if err != nil {
				return err
			}
			return accumulate(g, grads, in(0), scaled)
		}
		return accumulate(g, grads, in(0), grad)

	case "reshape", "transpose", "squeeze", "unsqueeze":
		// Pure shape ops carry values through unchanged; the gradient
		// takes the same shape as the forward input and is passed as-is.
		return accumulate(g, grads, in(0), grad)

	default:
		return nil
	}
}
