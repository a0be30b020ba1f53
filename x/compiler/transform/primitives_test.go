package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compilerconfig"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func TestInsertAlgorithmicPrimitives_ExpandsDotIntoLoopAndAccumulator(t *testing.T) {
	g := ir.New()
	a, err := g.AddNode("memory", dtype.Float, 0, nil, "a")
	require.NoError(t, err)
	b, err := g.AddNode("memory", dtype.Float, 0, nil, "b")
	require.NoError(t, err)
	dot, err := g.AddNode("dot", dtype.Float, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "dot")
	require.NoError(t, err)
	consumer, err := g.AddNode("neg", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: dot,
	}, "consumer")
	require.NoError(t, err)

	cfg := compilerconfig.Default()
	require.NoError(t, InsertAlgorithmicPrimitives(g, cfg))

	assert.True(t, dot.Detached())

	src, err := consumer.Args().Get(ir.RoleInput, 0)
	require.NoError(t, err)
	require.Equal(t, "load", src.Operation().Name)

	var sawLoop, sawAtomicAdd bool
	for _, n := range g.AllNodes() {
		if n.Operation() == nil {
			continue
		}
		switch n.Operation().Name {
		case "loop":
			sawLoop = true
		case "atomic_add":
			sawAtomicAdd = true
		}
	}
	assert.True(t, sawLoop)
	assert.True(t, sawAtomicAdd)
}

func TestInsertAlgorithmicPrimitives_LeavesMatmulUnexpanded(t *testing.T) {
	g := ir.New()
	a, err := g.AddNode("memory", dtype.Float, 0, nil, "a")
	require.NoError(t, err)
	b, err := g.AddNode("memory", dtype.Float, 0, nil, "b")
	require.NoError(t, err)
	matmul, err := g.AddNode("matmul", dtype.Float, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "matmul")
	require.NoError(t, err)

	cfg := compilerconfig.Default()
	require.NoError(t, InsertAlgorithmicPrimitives(g, cfg))

	assert.False(t, matmul.Detached())
}
