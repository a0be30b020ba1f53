// Package ir implements the computation graph core (C3 argument manager,
// C4 IR graph): a rooted tree of scopes threaded by prev/next sibling
// links and parent/child nesting, with typed data/shape/index/memory
// edges tracked separately by each node's ArgumentManager.
package ir

import (
	"github.com/tensorfrost-go/tfcore/x/compiler/catalog"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
)

var rootOperation = &catalog.Operation{Name: "root", Classes: catalog.ClassStatic}

// Graph owns every Node created for one compilation unit. Structural
// mutation goes through AddNode/MoveNodeTo/RemoveNode; true_prev/true_next,
// Index and each node's Outputs reverse index are stale until UpdateGraph
// is called, per spec.md §3's two-phase build/index split.
type Graph struct {
	catalog *catalog.Catalog
	nodes   []*Node
	root    *Node
	stack   []scopeFrame

	inputCount, outputCount int
	outputMemory            map[*Node]struct{}
	shapeDims               map[*Node]map[int]*Node
}

// New returns an empty graph using the default operation catalog.
func New() *Graph {
	return NewWithCatalog(catalog.Default())
}

// NewWithCatalog returns an empty graph validating nodes against cat,
// letting tests and alternate pipelines register a private operation set.
func NewWithCatalog(cat *catalog.Catalog) *Graph {
	g := &Graph{catalog: cat}
	root := newPlaceholder(g, nil, nil)
	_ = root.Initialize(rootOperation, dtype.None, 0, "root")
	g.nodes = append(g.nodes, root)
	g.root = root
	g.stack = []scopeFrame{{parent: root, after: nil}}
	return g
}

// Root returns the graph's root scope node; every other node descends
// from it.
func (g *Graph) Root() *Node { return g.root }

// Len returns the number of nodes ever allocated in this graph, including
// the root and any detached nodes still referenced by g.nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// AllNodes returns every live node below the root, in tree declaration
// order (parent/child/prev/next). If UpdateGraph has already run, this
// order coincides with the topological order it assigned to Index.
// Transform passes use this as their primary iteration surface.
func (g *Graph) AllNodes() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		for cur := n; cur != nil; cur = cur.next {
			out = append(out, cur)
			if cur.child != nil {
				walk(cur.child)
			}
		}
	}
	if g.root.child != nil {
		walk(g.root.child)
	}
	return out
}

// GetOperationCount returns the number of live operation nodes in the
// graph: every node ever allocated except the root scope and anything
// already detached by RemoveNode.
func (g *Graph) GetOperationCount() int {
	count := 0
	for _, n := range g.nodes {
		if n == g.root || n.detached {
			continue
		}
		count++
	}
	return count
}

// DeclareInput marks n as a program input memory node, counted by
// InputCount.
func (g *Graph) DeclareInput(n *Node) {
	n.SetMemoryType(MemInput)
	g.inputCount++
}

// DeclareOutput marks n as a program output memory node: AddMemoryDeallocation
// skips it, and it is recorded in the graph's output memory map, counted
// by OutputCount.
func (g *Graph) DeclareOutput(n *Node) {
	n.SetMemoryType(MemOutput)
	g.outputCount++
	if g.outputMemory == nil {
		g.outputMemory = map[*Node]struct{}{}
	}
	g.outputMemory[n] = struct{}{}
}

// InputCount returns the number of nodes marked via DeclareInput.
func (g *Graph) InputCount() int { return g.inputCount }

// OutputCount returns the number of nodes marked via DeclareOutput.
func (g *Graph) OutputCount() int { return g.outputCount }

// TempCount returns the number of "memory" declarations that are neither
// a declared input nor a declared output: the scratch and kernel-spill
// buffers the compiler itself introduces.
func (g *Graph) TempCount() int {
	count := 0
	for _, n := range g.nodes {
		if n.detached || n.op == nil || n.op.Name != "memory" {
			continue
		}
		if n.memoryType == MemInput || n.memoryType == MemOutput {
			continue
		}
		count++
	}
	return count
}

// OutputMemory returns the set of nodes declared via DeclareOutput.
func (g *Graph) OutputMemory() map[*Node]struct{} { return g.outputMemory }

// ShapeDimNode returns the node previously cached for (input, dim) via
// SetShapeDimNode, or ok=false if none has been registered yet.
func (g *Graph) ShapeDimNode(input *Node, dim int) (n *Node, ok bool) {
	byDim, ok := g.shapeDims[input]
	if !ok {
		return nil, false
	}
	n, ok = byDim[dim]
	return n, ok
}

// SetShapeDimNode records shapeNode as the node other passes should reuse
// for input's dimension dim, rather than resynthesising an equivalent one.
func (g *Graph) SetShapeDimNode(input *Node, dim int, shapeNode *Node) {
	if g.shapeDims == nil {
		g.shapeDims = map[*Node]map[int]*Node{}
	}
	byDim, ok := g.shapeDims[input]
	if !ok {
		byDim = map[int]*Node{}
		g.shapeDims[input] = byDim
	}
	byDim[dim] = shapeNode
}

// AddNode creates and links a new node at the current cursor position
// (see SetCursor/BeginScope/ExecuteExpression*), validating its Input-role
// edges against the named operation's signature. want may be dtype.None
// to infer the output type from the operation's rule; operations whose
// output type the catalog cannot infer from inputs alone (const, memory
// declarations, input_shape) require an explicit want.
func (g *Graph) AddNode(opName string, want dtype.Type, payload uint64, inputs map[ArgID]*Node, debugName string) (*Node, error) {
	op, err := g.catalog.Lookup(opName)
	if err != nil {
		return nil, err
	}

	inputTypes := inputTypeTuple(inputs)
	if err := g.catalog.ValidateInputs(opName, inputTypes); err != nil {
		return nil, err
	}

	outType := want
	if outType == dtype.None {
		outType, err = g.catalog.OutputType(opName, inputTypes)
		if err != nil {
			return nil, err
		}
	}

	f := g.top()
	n := newPlaceholder(g, f.parent, f.after)
	if err := n.Initialize(op, outType, payload, debugName); err != nil {
		return nil, err
	}
	for id, src := range inputs {
		if err := n.args.Add(id, src); err != nil {
			return nil, err
		}
	}

	g.link(n)
	g.nodes = append(g.nodes, n)
	f.after = n
	return n, nil
}

// inputTypeTuple extracts the contiguous Input-role slots, in slot order,
// as the type tuple an operation's ValidateFunc/OutputFunc consults.
// Shape/Index/Memory edges are structural and never part of this tuple.
func inputTypeTuple(inputs map[ArgID]*Node) []dtype.Type {
	count := 0
	for id := range inputs {
		if id.Role == RoleInput && id.Slot+1 > count {
			count = id.Slot + 1
		}
	}
	types := make([]dtype.Type, count)
	for id, n := range inputs {
		if id.Role == RoleInput {
			types[id.Slot] = n.OutputType()
		}
	}
	return types
}

// link wires n into the sibling list at the position already recorded in
// n.parent/n.prev, fixing up the neighbours on both sides.
func (g *Graph) link(n *Node) {
	parent := n.parent
	prev := n.prev
	var next *Node
	if prev != nil {
		next = prev.next
		prev.next = n
	} else {
		next = parent.child
		parent.child = n
	}
	n.next = next
	if next != nil {
		next.prev = n
	}
}

// unlink removes n from its current sibling list without touching its
// parent/prev/next bookkeeping fields (the caller sets those next).
func unlink(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if n.parent != nil {
		n.parent.child = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev = nil
	n.next = nil
}

// MoveNodeTo relocates n to become the sibling immediately after `after`
// within parent's children (after nil makes n the first child). Fails
// with ErrTopologicalViolation if the move would nest a node inside its
// own subtree.
func (g *Graph) MoveNodeTo(n, parent, after *Node) error {
	if n == parent || isAncestorOf(n, parent) {
		return newError("MoveNodeTo", "destination is inside the node being moved", ErrTopologicalViolation)
	}
	if g.top().after == n {
		g.top().after = n.prev
	}
	unlink(n)
	n.parent = parent
	n.prev = after
	g.link(n)
	return nil
}

// RemoveNode unlinks and detaches a node that has no children and no
// remaining consumers. Retarget consumers first with
// Node.MakeOutputsUseGivenNode, then call UpdateGraph to refresh the
// reverse index this check relies on. Fails with ErrTopologicalViolation
// otherwise.
func (g *Graph) RemoveNode(n *Node) error {
	if n.child != nil {
		return newError("RemoveNode", "node still has children", ErrTopologicalViolation)
	}
	if len(n.consumers()) != 0 {
		return newError("RemoveNode", "node still has consumers", ErrTopologicalViolation)
	}
	if g.top().after == n {
		g.top().after = n.prev
	}
	unlink(n)
	n.detached = true
	return nil
}

// UpdateGraph rebuilds the topological order (Index, true_prev/true_next)
// and every node's Outputs reverse index from the current tree shape and
// input edges, then validates the result: no node may read a nil or
// detached argument, and no argument may point at a node that comes after
// its reader in the rebuilt order (ErrTopologicalViolation). It also
// recomputes each node's modified flag: a node is modified iff some
// Modifier-class consumer writes to it through a Memory-role edge. It is
// idempotent: calling it twice with no structural change in between
// reproduces the same order. Call it after any structural rewrite before
// relying on Index, TruePrev/TrueNext, or
// Node.GetLastVersion/GetFinalVersion/consumers.
func (g *Graph) UpdateGraph() error {
	for _, n := range g.nodes {
		n.args.ClearOutputs()
		n.modified = false
	}

	order := make([]*Node, 0, len(g.nodes))
	var walk func(n *Node)
	walk = func(n *Node) {
		for cur := n; cur != nil; cur = cur.next {
			order = append(order, cur)
			if cur.child != nil {
				walk(cur.child)
			}
		}
	}
	walk(g.root)

	var prev *Node
	for i, n := range order {
		n.index = i
		n.truePrev = prev
		if prev != nil {
			prev.trueNext = n
		}
		prev = n
	}
	if prev != nil {
		prev.trueNext = nil
	}

	for _, n := range order {
		for id, src := range n.args.All() {
			if src != nil {
				src.args.registerOutput(n, id)
			}
		}
	}

	for _, n := range order {
		for id, src := range n.args.All() {
			if src == nil || src.detached {
				return newError("UpdateGraph", "node reads a null or detached argument", ErrNullArgument)
			}
			if src.index > n.index {
				return newError("UpdateGraph", "argument comes after its reader in topological order", ErrTopologicalViolation)
			}
			if n.IsModifier() && id.Role == RoleMemory {
				src.modified = true
			}
		}
	}
	return nil
}
