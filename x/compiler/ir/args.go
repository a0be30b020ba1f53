package ir

import "github.com/tensorfrost-go/tfcore/x/compiler/dtype"

// ArgRole classifies an edge by what it means to the consuming node.
type ArgRole int

const (
	RoleInput ArgRole = iota
	RoleIndex
	RoleShape
	RoleMemory
	RoleNone
)

func (r ArgRole) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleIndex:
		return "index"
	case RoleShape:
		return "shape"
	case RoleMemory:
		return "memory"
	default:
		return "none"
	}
}

// ArgID names one edge slot on a node: a role plus a positional index
// within that role (e.g. the 2nd Input, or the 0th Shape dimension).
type ArgID struct {
	Role ArgRole
	Slot int
}

// ArgumentManager is the per-node typed edge set (C3): inputs keyed by
// (role, slot), and the outputs reverse index rebuilt by Graph.UpdateGraph.
// It never mutates the owning node's topology (parent/child/prev/next);
// it only tracks data/shape/memory/index edges.
type ArgumentManager struct {
	node *Node

	inputs map[ArgID]*Node
	// outputs maps a consumer node to the set of argument slots through
	// which that consumer reads the node owning this manager. Cleared and
	// rebuilt wholesale by Graph.UpdateGraph; never maintained incrementally.
	outputs map[*Node]map[ArgID]struct{}

	argumentTypes  map[ArgID]dtype.Type
	argumentCounts map[ArgRole]int
	names          map[ArgID]string
	parenthesis    map[ArgID]bool
	addParens      bool
}

// newArgumentManager constructs the argument set for owner. owner must be
// non-nil.
func newArgumentManager(owner *Node) (*ArgumentManager, error) {
	if owner == nil {
		return nil, newError("newArgumentManager", "owner node is nil", ErrNullArgument)
	}
	return &ArgumentManager{
		node:           owner,
		inputs:         make(map[ArgID]*Node),
		outputs:        make(map[*Node]map[ArgID]struct{}),
		argumentTypes:  make(map[ArgID]dtype.Type),
		argumentCounts: make(map[ArgRole]int),
		names:          make(map[ArgID]string),
		parenthesis:    make(map[ArgID]bool),
	}, nil
}

// Add inserts a new input edge at id, pointing at n. Fails with
// ErrNullArgument if n is nil.
func (a *ArgumentManager) Add(id ArgID, n *Node) error {
	if n == nil {
		return newError("Add", "argument node is nil", ErrNullArgument)
	}
	if _, exists := a.inputs[id]; !exists {
		a.argumentCounts[id.Role]++
	}
	a.inputs[id] = n
	a.argumentTypes[id] = n.OutputType()
	return nil
}

// Update replaces the node at an existing edge id, for in-place rewrites.
// Fails with ErrArgumentNotFound if id has no existing edge (use Add for
// a fresh slot) and ErrNullArgument if n is nil.
func (a *ArgumentManager) Update(id ArgID, n *Node) error {
	if n == nil {
		return newError("Update", "argument node is nil", ErrNullArgument)
	}
	if _, exists := a.inputs[id]; !exists {
		return newError("Update", "no existing edge to replace", ErrArgumentNotFound)
	}
	a.inputs[id] = n
	a.argumentTypes[id] = n.OutputType()
	return nil
}

// Has reports whether an edge exists at (role, slot).
func (a *ArgumentManager) Has(role ArgRole, slot int) bool {
	_, ok := a.inputs[ArgID{Role: role, Slot: slot}]
	return ok
}

// Get returns the node at (role, slot), failing with ErrArgumentNotFound
// if absent.
func (a *ArgumentManager) Get(role ArgRole, slot int) (*Node, error) {
	n, ok := a.inputs[ArgID{Role: role, Slot: slot}]
	if !ok {
		return nil, newError("Get", "no edge at requested slot", ErrArgumentNotFound)
	}
	return n, nil
}

// MustGet is a convenience for callers that have already validated the
// edge exists (e.g. transforms operating on a freshly type-checked graph).
// It panics if absent; production code should prefer Get.
func (a *ArgumentManager) MustGet(role ArgRole, slot int) *Node {
	n, err := a.Get(role, slot)
	if err != nil {
		panic(err)
	}
	return n
}

// Count returns the number of edges registered for role.
func (a *ArgumentManager) Count(role ArgRole) int {
	return a.argumentCounts[role]
}

// Type returns the cached output type recorded for the edge at (role,slot).
func (a *ArgumentManager) Type(role ArgRole, slot int) (dtype.Type, bool) {
	t, ok := a.argumentTypes[ArgID{Role: role, Slot: slot}]
	return t, ok
}

// All returns every (id, node) pair currently registered as an input edge.
// The returned map is a copy; mutating it does not affect the manager.
func (a *ArgumentManager) All() map[ArgID]*Node {
	out := make(map[ArgID]*Node, len(a.inputs))
	for k, v := range a.inputs {
		out[k] = v
	}
	return out
}

// OfRole returns every (id, node) pair whose role matches.
func (a *ArgumentManager) OfRole(role ArgRole) map[ArgID]*Node {
	out := make(map[ArgID]*Node)
	for k, v := range a.inputs {
		if k.Role == role {
			out[k] = v
		}
	}
	return out
}

// RemoveArguments drops every edge of the given role.
func (a *ArgumentManager) RemoveArguments(role ArgRole) {
	for id := range a.inputs {
		if id.Role == role {
			delete(a.inputs, id)
			delete(a.argumentTypes, id)
			delete(a.names, id)
			delete(a.parenthesis, id)
		}
	}
	delete(a.argumentCounts, role)
}

// ClearOutputs empties the outputs reverse index. Called by
// Graph.UpdateGraph before a full rebuild.
func (a *ArgumentManager) ClearOutputs() {
	a.outputs = make(map[*Node]map[ArgID]struct{})
}

// registerOutput records that consumer reads this manager's owner through
// slot id. Only called by Graph.UpdateGraph while rebuilding the reverse
// index; the outputs map is otherwise a read-only cache.
func (a *ArgumentManager) registerOutput(consumer *Node, id ArgID) {
	slots, ok := a.outputs[consumer]
	if !ok {
		slots = make(map[ArgID]struct{})
		a.outputs[consumer] = slots
	}
	slots[id] = struct{}{}
}

// Outputs returns, for each consumer of this manager's owner, the set of
// slots through which it reads the owner. Reflects the state as of the
// last Graph.UpdateGraph call.
func (a *ArgumentManager) Outputs() map[*Node]map[ArgID]struct{} {
	return a.outputs
}

// SetName records a display name for code-emission/debug-listing purposes.
func (a *ArgumentManager) SetName(id ArgID, name string, requiresParenthesis bool) {
	a.names[id] = name
	a.parenthesis[id] = requiresParenthesis
}

// Name returns the display name recorded for id, parenthesised if the
// manager has parenthesis-on-emit enabled and the slot requires it.
func (a *ArgumentManager) Name(id ArgID) (string, bool) {
	name, ok := a.names[id]
	if !ok {
		return "", false
	}
	if a.addParens && a.parenthesis[id] {
		return "(" + name + ")", true
	}
	return name, true
}

// AddParenthesis toggles whether Name() wraps parenthesis-flagged names.
func (a *ArgumentManager) AddParenthesis(add bool) {
	a.addParens = add
}

// CannotCopyArgument reports whether the edge at id denotes aliasing
// rather than value production, and so must not be cloned blindly when a
// subgraph is duplicated. Memory-role edges alias a buffer; duplicating
// them without redirecting would make two nodes share state.
func (a *ArgumentManager) CannotCopyArgument(id ArgID) bool {
	return id.Role == RoleMemory
}

// CannotMoveArgument reports whether the edge at id must not be
// re-targeted by a generic node-move rewrite without dedicated handling.
// Memory edges carry aliasing semantics the same way copies do.
func (a *ArgumentManager) CannotMoveArgument(id ArgID) bool {
	return id.Role == RoleMemory
}

// IsChangingInput reports whether the edge at id represents a value the
// consumer reads as data (Input or Memory), as opposed to purely
// structural bookkeeping (Index, Shape).
func (a *ArgumentManager) IsChangingInput(id ArgID) bool {
	return id.Role == RoleInput || id.Role == RoleMemory
}
