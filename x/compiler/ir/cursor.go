package ir

// scopeFrame is one entry of the Graph's scope stack: the parent whose
// children are currently being appended, and the last sibling appended so
// far in that scope (nil means the scope is still empty).
type scopeFrame struct {
	parent *Node
	after  *Node
}

func (g *Graph) top() *scopeFrame { return &g.stack[len(g.stack)-1] }

// lastChildOf walks parent's child list to its tail, or returns nil if
// parent has no children yet.
func lastChildOf(parent *Node) *Node {
	n := parent.child
	if n == nil {
		return nil
	}
	for n.next != nil {
		n = n.next
	}
	return n
}

// Cursor returns the node after which the next AddNode call will insert
// within the current scope, or nil if that scope has no children yet.
func (g *Graph) Cursor() *Node { return g.top().after }

// SetCursor repositions insertion to just after n, within n's parent
// scope. Used to resume appending into a scope the caller navigated to
// directly rather than through BeginScope.
func (g *Graph) SetCursor(n *Node) {
	f := g.top()
	f.parent = n.parent
	f.after = n
}

// BeginScope pushes scopeNode as the current insertion parent; subsequent
// AddNode calls become scopeNode's children, appended after any it
// already has. Pair with EndScope.
func (g *Graph) BeginScope(scopeNode *Node) {
	g.stack = append(g.stack, scopeFrame{parent: scopeNode, after: lastChildOf(scopeNode)})
}

// EndScope pops the current scope and resumes insertion as a sibling
// right after the node that opened it. Fails with ErrScopeUnderflow if
// called without a matching BeginScope (the root frame is never popped).
func (g *Graph) EndScope() error {
	if len(g.stack) <= 1 {
		return newError("EndScope", "no scope to end", ErrScopeUnderflow)
	}
	closed := g.stack[len(g.stack)-1]
	g.stack = g.stack[:len(g.stack)-1]
	g.SetCursor(closed.parent)
	return nil
}

// withFrame pushes a temporary scope frame, runs fn, and pops it
// regardless of error — the building block for the ExecuteExpression*
// helpers below, which splice nodes near an existing node without the
// caller having to save and restore the cursor by hand.
func (g *Graph) withFrame(f scopeFrame, fn func() error) error {
	g.stack = append(g.stack, f)
	defer func() { g.stack = g.stack[:len(g.stack)-1] }()
	return fn()
}

// ExecuteExpressionBefore runs fn with the cursor positioned so nodes it
// adds become new siblings immediately before ctx, in ctx's parent scope.
func (g *Graph) ExecuteExpressionBefore(ctx *Node, fn func() error) error {
	return g.withFrame(scopeFrame{parent: ctx.parent, after: ctx.prev}, fn)
}

// ExecuteExpressionAfter runs fn with the cursor positioned so nodes it
// adds become new siblings immediately after ctx.
func (g *Graph) ExecuteExpressionAfter(ctx *Node, fn func() error) error {
	return g.withFrame(scopeFrame{parent: ctx.parent, after: ctx}, fn)
}

// ExecuteExpressionChild runs fn with the cursor positioned inside ctx's
// own scope, appended after any children ctx already has.
func (g *Graph) ExecuteExpressionChild(ctx *Node, fn func() error) error {
	return g.withFrame(scopeFrame{parent: ctx, after: lastChildOf(ctx)}, fn)
}
