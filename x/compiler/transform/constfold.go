package transform

import (
	"github.com/chewxy/math32"

	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/catalog"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// OptimizeOperations folds arithmetic nodes whose every Input operand is
// a Float constant into a single const node, computed with math32 to
// match the single-precision arithmetic the compiled kernels themselves
// would perform. Non-foldable nodes (any non-constant input, or an
// operation with no folding rule) are left untouched.
func OptimizeOperations(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	cat := catalog.Default()
	folded := 0
	for _, n := range g.AllNodes() {
		if fold(cat, n) {
			folded++
		}
	}
	tflog.Log.Debug().Int("folded", folded).Msg("constant folding rewrote nodes")
	return nil
}

func fold(cat *catalog.Catalog, n *ir.Node) bool {
	op := n.Operation()
	if op == nil || op.Is(catalog.ClassConstant) || n.OutputType() != dtype.Float {
		return false
	}
	operands, ok := floatOperands(n)
	if !ok {
		return false
	}
	result, ok := evalFloat(op.Name, operands)
	if !ok {
		return false
	}
	constOp, err := cat.Lookup("const")
	if err != nil {
		return false
	}
	n.Rewrite(constOp, dtype.Float, uint64(math32.Float32bits(result)))
	return true
}

func floatOperands(n *ir.Node) ([]float32, bool) {
	count := n.Args().Count(ir.RoleInput)
	if count == 0 {
		return nil, false
	}
	out := make([]float32, count)
	for i := 0; i < count; i++ {
		src, err := n.Args().Get(ir.RoleInput, i)
		if err != nil {
			return nil, false
		}
		if !src.IsConstantClass() || src.OutputType() != dtype.Float {
			return nil, false
		}
		out[i] = src.PayloadFloat()
	}
	return out, true
}

func evalFloat(name string, a []float32) (float32, bool) {
	switch name {
	case "add":
		return a[0] + a[1], true
	case "sub":
		return a[0] - a[1], true
	case "mul":
		return a[0] * a[1], true
	case "div":
		return a[0] / a[1], true
	case "mod":
		return math32.Mod(a[0], a[1]), true
	case "min":
		return math32.Min(a[0], a[1]), true
	case "max":
		return math32.Max(a[0], a[1]), true
	case "neg":
		return -a[0], true
	case "exp":
		return math32.Exp(a[0]), true
	case "log":
		return math32.Log(a[0]), true
	case "sqrt":
		return math32.Sqrt(a[0]), true
	case "abs":
		return math32.Abs(a[0]), true
	default:
		return 0, false
	}
}
