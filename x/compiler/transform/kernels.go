package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/catalog"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// scopeSnapshot captures one scope's children before any kernel-wrapping
// mutation, so fuseRuns can reason about run boundaries without its
// decisions being disturbed by a sibling scope's own wrapping.
type scopeSnapshot struct {
	parent   *ir.Node
	children []*ir.Node
}

// snapshotScopes walks the whole tree once and records every node that
// currently has at least one child, plus the root, with its children at
// that moment.
func snapshotScopes(g *ir.Graph) []scopeSnapshot {
	seen := map[*ir.Node]bool{}
	var scopes []scopeSnapshot
	collect := func(p *ir.Node) {
		if seen[p] {
			return
		}
		seen[p] = true
		scopes = append(scopes, scopeSnapshot{parent: p, children: directChildren(p)})
	}
	var visit func(n *ir.Node)
	visit = func(n *ir.Node) {
		for cur := n; cur != nil; cur = cur.Next() {
			if cur.Child() != nil {
				collect(cur)
				visit(cur.Child())
			}
		}
	}
	collect(g.Root())
	visit(g.Root().Child())
	return scopes
}

// isFusable reports whether n is plain elementwise/shape compute that can
// share a kernel with its neighbours: not a memory op, not structural
// control flow, not already a kernel or a constant/static declaration.
func isFusable(n *ir.Node) bool {
	op := n.Operation()
	if op == nil {
		return false
	}
	switch op.Name {
	case "kernel", "const", "memory", "input_shape", "begin_region", "end_region":
		return false
	}
	if op.Is(catalog.ClassNondiff) || op.Is(catalog.ClassMemoryOp) || op.Is(catalog.ClassStatic) {
		return false
	}
	return true
}

// SeparateOperationsIntoKernels wraps every maximal run of two or more
// consecutive fusable sibling nodes, in any scope, in a new "kernel"
// scope node, fusing them for single-dispatch execution.
func SeparateOperationsIntoKernels(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	before := len(kernelNodes(g))
	for _, scope := range snapshotScopes(g) {
		if err := fuseRuns(g, scope); err != nil {
			return err
		}
	}
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	tflog.Log.Debug().Int("kernels_formed", len(kernelNodes(g))-before).Msg("fused operation runs into kernels")
	return nil
}

func fuseRuns(g *ir.Graph, scope scopeSnapshot) error {
	children := scope.children
	i := 0
	for i < len(children) {
		if !isFusable(children[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(children) && isFusable(children[j]) {
			j++
		}
		if j-i >= 2 {
			if err := wrapRunInKernel(g, children[i:j]); err != nil {
				return err
			}
		}
		i = j
	}
	return nil
}

func wrapRunInKernel(g *ir.Graph, run []*ir.Node) error {
	start := run[0]
	var kernel *ir.Node
	err := g.ExecuteExpressionBefore(start, func() error {
		var innerErr error
		kernel, innerErr = g.AddNode("kernel", dtype.None, 0, nil, "kernel")
		return innerErr
	})
	if err != nil {
		return err
	}
	var last *ir.Node
	for _, n := range run {
		if err := g.MoveNodeTo(n, kernel, last); err != nil {
			return err
		}
		last = n
	}
	return nil
}

func kernelNodes(g *ir.Graph) []*ir.Node {
	var out []*ir.Node
	for _, n := range g.AllNodes() {
		if n.Operation() != nil && n.Operation().Name == "kernel" {
			out = append(out, n)
		}
	}
	return out
}

// kernelBody returns every descendant of kernel, recursively, in
// declaration order.
func kernelBody(kernel *ir.Node) []*ir.Node {
	var out []*ir.Node
	var walk func(n *ir.Node)
	walk = func(n *ir.Node) {
		for cur := n; cur != nil; cur = cur.Next() {
			out = append(out, cur)
			if cur.Child() != nil {
				walk(cur.Child())
			}
		}
	}
	if kernel.Child() != nil {
		walk(kernel.Child())
	}
	return out
}

// enclosingKernel returns the nearest "kernel" ancestor of n, inclusive of
// n itself, or nil if n is not nested in one.
func enclosingKernel(n *ir.Node) *ir.Node {
	for p := n; p != nil; p = p.Parent() {
		if p.Operation() != nil && p.Operation().Name == "kernel" {
			return p
		}
	}
	return nil
}

// AddKernelGlobalLoadOperations inserts one "load" node per distinct
// outside-the-kernel, non-constant value a kernel's body reads through a
// RoleInput edge, at the start of the kernel, and rewires the body to read the
// load instead of reaching across the boundary directly.
func AddKernelGlobalLoadOperations(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	added := 0
	for _, kernel := range kernelNodes(g) {
		n, err := addGlobalLoads(g, kernel)
		if err != nil {
			return err
		}
		added += n
	}
	tflog.Log.Debug().Int("loads_added", added).Msg("added kernel boundary load operations")
	return g.UpdateGraph()
}

func addGlobalLoads(g *ir.Graph, kernel *ir.Node) (int, error) {
	cache := map[*ir.Node]*ir.Node{}
	for _, n := range kernelBody(kernel) {
		for id, src := range n.Args().All() {
			if id.Role != ir.RoleInput || enclosingKernel(src) == kernel {
				continue
			}
			// A constant is an immediate value, not a memory-backed one: it
			// needs no load instruction and is simply referenced wherever
			// it's used, regardless of which kernel that is.
			if src.IsConstantClass() {
				continue
			}
			loadNode, ok := cache[src]
			if !ok {
				var err error
				target := kernel.Child()
				if target != nil {
					err = g.ExecuteExpressionBefore(target, func() error {
						var innerErr error
						loadNode, innerErr = g.AddNode("load", dtype.None, 0, map[ir.ArgID]*ir.Node{
							{Role: ir.RoleInput, Slot: 0}: src,
						}, "global_load")
						return innerErr
					})
				} else {
					err = g.ExecuteExpressionChild(kernel, func() error {
						var innerErr error
						loadNode, innerErr = g.AddNode("load", dtype.None, 0, map[ir.ArgID]*ir.Node{
							{Role: ir.RoleInput, Slot: 0}: src,
						}, "global_load")
						return innerErr
					})
				}
				if err != nil {
					return 0, err
				}
				cache[src] = loadNode
			}
			if err := n.Args().Update(id, loadNode); err != nil {
				return 0, err
			}
		}
	}
	return len(cache), nil
}

// AddKernelGlobalStoreOperations appends a "store" node for every kernel
// body value some node outside that kernel, other than a "store", still
// reads, writing it to a
// freshly declared "memory" slot placed just before the kernel. The
// escaping consumer keeps its direct edge to the original node — explicit
// kernel-boundary memory traffic is a codegen-facing annotation this IR
// records, not a substitute wiring the graph itself needs.
func AddKernelGlobalStoreOperations(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	added := 0
	for _, kernel := range kernelNodes(g) {
		n, err := addGlobalStores(g, kernel)
		if err != nil {
			return err
		}
		added += n
	}
	tflog.Log.Debug().Int("stores_added", added).Msg("added kernel boundary store operations")
	return g.UpdateGraph()
}

func addGlobalStores(g *ir.Graph, kernel *ir.Node) (int, error) {
	added := 0
	for _, n := range kernelBody(kernel) {
		if !escapesKernel(n, kernel) {
			continue
		}
		memNode, err := declareGlobalMemory(g, kernel, n)
		if err != nil {
			return 0, err
		}
		err = g.ExecuteExpressionChild(kernel, func() error {
			_, innerErr := g.AddNode("store", dtype.None, 0, map[ir.ArgID]*ir.Node{
				{Role: ir.RoleInput, Slot: 0}:  n,
				{Role: ir.RoleMemory, Slot: 0}: memNode,
			}, "global_store")
			return innerErr
		})
		if err != nil {
			return 0, err
		}
		added++
	}
	return added, nil
}

func declareGlobalMemory(g *ir.Graph, kernel *ir.Node, n *ir.Node) (*ir.Node, error) {
	var memNode *ir.Node
	err := g.ExecuteExpressionBefore(kernel, func() error {
		var innerErr error
		memNode, innerErr = g.AddNode("memory", n.OutputType(), 0, nil, "spill")
		return innerErr
	})
	return memNode, err
}

func escapesKernel(n, kernel *ir.Node) bool {
	for c := range n.Consumers() {
		if enclosingKernel(c) == kernel {
			continue
		}
		// A "store" consumer is already explicit memory-boundary traffic:
		// it writes n's value to a memory node directly, so spilling n to
		// another memory slot just to load it back would be redundant.
		if c.Operation() != nil && c.Operation().Name == "store" {
			continue
		}
		return true
	}
	return false
}
