package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func TestReorderOperations_FixesForwardReference(t *testing.T) {
	g := ir.New()
	a := floatConst(t, g, 1)
	b := floatConst(t, g, 2)
	consumer, err := g.AddNode("add", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "consumer")
	require.NoError(t, err)

	// Force a forward reference: move the consumer before one of its
	// own inputs, bypassing the normal insertion-order guarantee.
	require.NoError(t, g.MoveNodeTo(consumer, g.Root(), nil))
	_ = g.UpdateGraph() // Index is refreshed even though this reports the forced violation
	require.Greater(t, b.Index(), consumer.Index())

	require.NoError(t, ReorderOperations(g))

	require.NoError(t, g.UpdateGraph())
	assert.Less(t, a.Index(), consumer.Index())
	assert.Less(t, b.Index(), consumer.Index())
}

func TestReorderOperations_NoopOnAlreadyOrderedGraph(t *testing.T) {
	g := ir.New()
	a := floatConst(t, g, 1)
	b := floatConst(t, g, 2)
	_, err := g.AddNode("add", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "sum")
	require.NoError(t, err)

	require.NoError(t, ReorderOperations(g))
	require.NoError(t, ReorderOperations(g))
}
