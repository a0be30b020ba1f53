package transform

import "github.com/tensorfrost-go/tfcore/x/compiler/ir"

// ComputeNodeCost assigns a heuristic cost to a single node, used by
// ComputeStatistics for the pipeline's summary log; no pass uses it to
// choose between fusions. matmul/dot cost most, then memory operations,
// then loop/if; a kernel node and plain arithmetic cost 1. It is a rough
// ranking, not a timing model.
func ComputeNodeCost(n *ir.Node) int {
	op := n.Operation()
	if op == nil {
		return 0
	}
	switch {
	case n.IsMemoryOp():
		return 10
	case op.Name == "kernel":
		return 1
	case op.Name == "loop", op.Name == "if":
		return 5
	case op.Name == "matmul", op.Name == "dot":
		return 20
	default:
		return 1
	}
}

// Statistics summarises a compiled graph's size and estimated cost.
type Statistics struct {
	NodeCount   int
	KernelCount int
	TotalCost   int
}

// ComputeStatistics walks every live node and totals ComputeNodeCost.
func ComputeStatistics(g *ir.Graph) Statistics {
	var s Statistics
	for _, n := range g.AllNodes() {
		s.NodeCount++
		s.TotalCost += ComputeNodeCost(n)
		if n.Operation() != nil && n.Operation().Name == "kernel" {
			s.KernelCount++
		}
	}
	return s
}
