package ir

import (
	"math"

	"github.com/tensorfrost-go/tfcore/x/compiler/catalog"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/shapealg"
)

// MemoryType annotates how a node participates in the memory plan.
type MemoryType int

const (
	MemNone MemoryType = iota
	MemInput
	MemOutput
	MemConstant
)

// IndexingMode is the out-of-range policy for loads/stores through a node.
type IndexingMode int

const (
	IndexUnsafe IndexingMode = iota
	IndexClamp
	IndexRepeat
	IndexZero
)

// Node is one vertex of the IR: identity, semantics, topology and edges,
// per spec.md §3. The IR graph owns every Node it creates (see Graph); a
// Node's lifecycle is placeholder -> initialized (once) -> mutated ->
// detached -> freed with its owning Graph.
type Node struct {
	graph *Graph

	placeholder bool
	detached    bool

	// identity
	index     int
	debugName string
	varName   string

	// semantics
	op         *catalog.Operation
	outputType dtype.Type
	payload    uint64

	// topology
	parent, child, prev, next *Node
	truePrev, trueNext        *Node

	// edges
	args *ArgumentManager

	// annotations
	memoryType   MemoryType
	indexingMode IndexingMode
	groupSize    int
	modified     bool
	static       bool
	specialIndex int

	tensor *Tensor
}

// newPlaceholder allocates an uninitialized node linked at the given
// topology position. It is not observable through iteration until
// Initialize is called.
func newPlaceholder(g *Graph, parent, prev *Node) *Node {
	n := &Node{
		graph:       g,
		placeholder: true,
		index:       -1,
	}
	n.parent = parent
	n.prev = prev
	args, _ := newArgumentManager(n)
	n.args = args
	return n
}

// Initialize gives a placeholder its semantics exactly once. Fails with
// ErrNodeAlreadyInit if called on a node that is already initialized.
func (n *Node) Initialize(op *catalog.Operation, outputType dtype.Type, payload uint64, debugName string) error {
	if !n.placeholder {
		return newError("Initialize", "node already initialized", ErrNodeAlreadyInit)
	}
	n.op = op
	n.outputType = outputType
	n.payload = payload
	n.debugName = debugName
	n.placeholder = false
	return nil
}

// Rewrite replaces an already-initialized node's operation, output type
// and payload in place, preserving its identity (and therefore every edge
// that already points at it). Transform passes use this for substitutions
// that don't change a node's position in the tree — constant folding,
// store-to-load forwarding — rather than allocating a replacement and
// rewiring every consumer.
func (n *Node) Rewrite(op *catalog.Operation, outputType dtype.Type, payload uint64) {
	n.op = op
	n.outputType = outputType
	n.payload = payload
}

// Valid reports whether the node is initialized (observable through
// iteration); a placeholder is never valid.
func (n *Node) Valid() bool { return !n.placeholder }

// Detached reports whether the node has been unlinked from the tree but
// not yet freed (used during bulk rewrites).
func (n *Node) Detached() bool { return n.detached }

func (n *Node) Index() int       { return n.index }
func (n *Node) Parent() *Node    { return n.parent }
func (n *Node) Child() *Node     { return n.child }
func (n *Node) Prev() *Node      { return n.prev }
func (n *Node) Next() *Node      { return n.next }
func (n *Node) TruePrev() *Node  { return n.truePrev }
func (n *Node) TrueNext() *Node  { return n.trueNext }

func (n *Node) Operation() *catalog.Operation { return n.op }
func (n *Node) OutputType() dtype.Type         { return n.outputType }
func (n *Node) Payload() uint64                { return n.payload }
func (n *Node) Args() *ArgumentManager         { return n.args }

func (n *Node) DebugName() string { return n.debugName }
func (n *Node) VarName() string   { return n.varName }
func (n *Node) SetVarName(name string) { n.varName = name }

func (n *Node) MemoryType() MemoryType       { return n.memoryType }
func (n *Node) SetMemoryType(t MemoryType)   { n.memoryType = t }
func (n *Node) IndexingMode() IndexingMode   { return n.indexingMode }
func (n *Node) SetIndexingMode(m IndexingMode) { n.indexingMode = m }
func (n *Node) GroupSize() int               { return n.groupSize }
func (n *Node) SetGroupSize(size int)        { n.groupSize = size }
func (n *Node) Modified() bool               { return n.modified }
func (n *Node) SetModified(m bool)           { n.modified = m }
func (n *Node) Static() bool                 { return n.static }
func (n *Node) SetStatic(s bool)             { n.static = s }
func (n *Node) SpecialIndex() int            { return n.specialIndex }
func (n *Node) SetSpecialIndex(i int)        { n.specialIndex = i }

// Tensor returns the node's synthesised runtime-facing handle, creating it
// on first access. A Node and its Tensor are 1:1 for the node's lifetime.
func (n *Node) Tensor() *Tensor {
	if n.tensor == nil {
		n.tensor = newTensor(n)
	}
	return n.tensor
}

// PayloadFloat decodes the inline payload as a 32-bit float bit pattern,
// the representation used by "const" nodes of Float output type.
func (n *Node) PayloadFloat() float32 {
	return math.Float32frombits(uint32(n.payload))
}

// PayloadInt decodes the inline payload as a signed 32-bit integer, the
// representation used by "const" nodes of Int output type (axis indices,
// shape dimension values, flags).
func (n *Node) PayloadInt() int {
	return int(int32(uint32(n.payload)))
}

// --- shapealg.DimNode ---

var _ shapealg.DimNode = (*Node)(nil)

// SameNode implements shapealg.DimNode: identity is pointer identity
// within the owning IR.
func (n *Node) SameNode(other shapealg.DimNode) bool {
	o, ok := other.(*Node)
	return ok && o == n
}

// ConstantValue implements shapealg.DimNode: a node is a compile-time
// constant dimension iff its operation belongs to the Constant class.
func (n *Node) ConstantValue() (int, bool) {
	if n.op == nil || !n.op.Is(catalog.ClassConstant) {
		return 0, false
	}
	return n.PayloadInt(), true
}

// IsModifier reports whether the node's operation is in the Modifier class.
func (n *Node) IsModifier() bool { return n.op != nil && n.op.Is(catalog.ClassModifier) }

// IsMemoryOp reports whether the node's operation is in the MemoryOp class.
func (n *Node) IsMemoryOp() bool { return n.op != nil && n.op.Is(catalog.ClassMemoryOp) }

// IsNondiff reports whether the node's operation is in the Nondiff class.
func (n *Node) IsNondiff() bool { return n.op != nil && n.op.Is(catalog.ClassNondiff) }

// IsConstantClass reports whether the node's operation is in the Constant class.
func (n *Node) IsConstantClass() bool { return n.op != nil && n.op.Is(catalog.ClassConstant) }

// GetCommonParent returns the lowest common ancestor of n and other under
// the parent/child tree. Fails with ErrNoCommonParent if the two nodes do
// not share a root (e.g. they belong to different IR instances).
func (n *Node) GetCommonParent(other *Node) (*Node, error) {
	ancestors := make(map[*Node]struct{})
	for p := n; p != nil; p = p.parent {
		ancestors[p] = struct{}{}
	}
	for p := other; p != nil; p = p.parent {
		if _, ok := ancestors[p]; ok {
			return p, nil
		}
	}
	return nil, newError("GetCommonParent", "nodes share no ancestor", ErrNoCommonParent)
}

// consumers returns every node that reads n, per the reverse index rebuilt
// by the last Graph.UpdateGraph call.
func (n *Node) consumers() map[*Node]map[ArgID]struct{} {
	return n.args.Outputs()
}

// Consumers returns the set of nodes reading n, per the reverse index
// rebuilt by the last Graph.UpdateGraph call. Transform passes use this
// to decide liveness and kernel-boundary crossing.
func (n *Node) Consumers() map[*Node]map[ArgID]struct{} {
	return n.consumers()
}

// enclosingLoop returns the nearest ancestor kernel-scope "loop" node of
// ctx, or nil if ctx is not nested in one.
func enclosingLoop(ctx *Node) *Node {
	for p := ctx; p != nil; p = p.parent {
		if p.op != nil && p.op.Name == "loop" {
			return p
		}
	}
	return nil
}

func isAncestorOf(candidate, of *Node) bool {
	for p := of; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// isVersionModifier reports whether c is a Modifier consumer that is not
// purely a memory op, the class n.GetLastVersion/GetFinalVersion consider
// when walking single-assignment history.
func isVersionModifier(c *Node) bool {
	return c.IsModifier() && !c.IsMemoryOp()
}

// GetLastVersion returns the latest Modifier-class (and not purely
// memory-only) consumer of n that occurs before ctx in index order, or
// inside the loop that encloses ctx if any. Returns n itself if no such
// consumer exists.
func (n *Node) GetLastVersion(ctx *Node) *Node {
	loop := enclosingLoop(ctx)
	var best *Node
	for c := range n.consumers() {
		if !isVersionModifier(c) {
			continue
		}
		eligible := c.index < ctx.index
		if !eligible && loop != nil {
			eligible = isAncestorOf(loop, c)
		}
		if !eligible {
			continue
		}
		if best == nil || c.index > best.index {
			best = c
		}
	}
	if best == nil {
		return n
	}
	return best
}

// GetFinalVersion returns the latest Modifier-class (non-memory-only)
// consumer of n in absolute index order, or n itself if none.
func (n *Node) GetFinalVersion() *Node {
	var best *Node
	for c := range n.consumers() {
		if !isVersionModifier(c) {
			continue
		}
		if best == nil || c.index > best.index {
			best = c
		}
	}
	if best == nil {
		return n
	}
	return best
}

// MakeOutputsUseGivenNode rewrites every consuming edge of n with index >=
// minIndex to instead point at replacement. If markModified is true,
// replacement is flagged as the current modified version. Callers must
// call Graph.UpdateGraph afterwards to refresh the reverse index.
func (n *Node) MakeOutputsUseGivenNode(replacement *Node, minIndex int, markModified bool) {
	for c, slots := range n.consumers() {
		if c.index < minIndex {
			continue
		}
		for id := range slots {
			_ = c.args.Update(id, replacement)
		}
	}
	if markModified {
		replacement.modified = true
	}
}
