package transform

import (
	"fmt"

	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
	"github.com/tensorfrost-go/tfcore/x/compiler/shapealg"
)

// CheckKernelShapes validates that every pair of shaped nodes sharing a
// kernel broadcast-compare compatible, once an earlier shape-inference
// stage has called Tensor.SetShape on the nodes that carry one. Nodes
// with no shape set (Tensor().Shape().Rank() == 0) are scalars or not yet
// shape-resolved and are skipped rather than treated as a mismatch. It also
// validates the operand-specific boundary rules for "matmul" (inner
// dimensions must align) and "squeeze" (the squeezed axis must be a
// compile-time constant 1), regardless of which kernel they fall in.
func CheckKernelShapes(g *ir.Graph) error {
	for _, n := range g.AllNodes() {
		if n.Operation() == nil {
			continue
		}
		switch n.Operation().Name {
		case "matmul":
			a, err := n.Args().Get(ir.RoleInput, 0)
			if err != nil {
				return err
			}
			b, err := n.Args().Get(ir.RoleInput, 1)
			if err != nil {
				return err
			}
			if a.Tensor().Shape().Rank() == 0 || b.Tensor().Shape().Rank() == 0 {
				continue
			}
			out, err := ir.MatmulShape(a.Tensor(), b.Tensor())
			if err != nil {
				msg := fmt.Sprintf("matmul node %d: inner dimensions of node %d and node %d do not match", n.Index(), a.Index(), b.Index())
				return newError("CheckKernelShapes", msg, err)
			}
			n.Tensor().SetShape(out)

		case "squeeze":
			x, err := n.Args().Get(ir.RoleInput, 0)
			if err != nil {
				return err
			}
			if x.Tensor().Shape().Rank() == 0 {
				continue
			}
			axisNode, err := n.Args().Get(ir.RoleShape, 0)
			if err != nil {
				continue
			}
			axis, ok := axisNode.ConstantValue()
			if !ok {
				continue
			}
			out, err := ir.Squeeze(x.Tensor(), axis)
			if err != nil {
				msg := fmt.Sprintf("squeeze node %d: axis %d of node %d is not statically known to be 1", n.Index(), axis, x.Index())
				return newError("CheckKernelShapes", msg, err)
			}
			n.Tensor().SetShape(out)
		}
	}

	for _, kernel := range kernelNodes(g) {
		var shaped []*ir.Node
		for _, n := range kernelBody(kernel) {
			if n.Tensor().Shape().Rank() > 0 {
				shaped = append(shaped, n)
			}
		}
		for i := 0; i < len(shaped); i++ {
			for j := i + 1; j < len(shaped); j++ {
				res := shapealg.Compare(shaped[i].Tensor().Shape(), shaped[j].Tensor().Shape(), false)
				if !res.Compatible {
					msg := fmt.Sprintf("node %d and node %d in kernel %d have incompatible shapes",
						shaped[i].Index(), shaped[j].Index(), kernel.Index())
					return newError("CheckKernelShapes", msg, ErrShapeIncompatibleInKernel)
				}
			}
		}
	}
	tflog.Log.Debug().Int("kernels_checked", len(kernelNodes(g))).Msg("validated kernel operand shapes")
	return nil
}
