package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func TestMoveShapeOutsideKernels_HoistsConstantOutOfKernel(t *testing.T) {
	g := ir.New()
	var kernel, constNode *ir.Node
	kernel, err := g.AddNode("kernel", dtype.None, 0, nil, "k")
	require.NoError(t, err)
	g.BeginScope(kernel)
	constNode, err = g.AddNode("const", dtype.Float, 0, nil, "two")
	require.NoError(t, err)
	require.NoError(t, g.EndScope())

	MoveShapeOutsideKernels(g)

	assert.Equal(t, kernel.Parent(), constNode.Parent())
	assert.Nil(t, kernel.Child())
}

func TestMoveShapeOutsideKernels_KeepsKernelLocalIndexPrimitive(t *testing.T) {
	g := ir.New()
	kernel, err := g.AddNode("kernel", dtype.None, 0, nil, "k")
	require.NoError(t, err)
	g.BeginScope(kernel)
	dimID, err := g.AddNode("dim_id", dtype.None, 0, nil, "i")
	require.NoError(t, err)
	require.NoError(t, g.EndScope())

	MoveShapeOutsideKernels(g)

	assert.Equal(t, kernel, dimID.Parent())
}
