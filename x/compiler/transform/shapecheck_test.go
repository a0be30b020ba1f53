package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
	"github.com/tensorfrost-go/tfcore/x/compiler/shapealg"
)

func TestCheckKernelShapes_PassesOnMatchingShapes(t *testing.T) {
	g := ir.New()
	kernel, err := g.AddNode("kernel", dtype.None, 0, nil, "k")
	require.NoError(t, err)
	g.BeginScope(kernel)
	dim := intConst(t, g, 4)
	a := floatConst(t, g, 1)
	a.Tensor().SetShape(shapealg.NewShape(dim))
	b := floatConst(t, g, 2)
	b.Tensor().SetShape(shapealg.NewShape(dim))
	require.NoError(t, g.EndScope())

	assert.NoError(t, CheckKernelShapes(g))
}

func TestCheckKernelShapes_FailsOnIncompatibleShapes(t *testing.T) {
	g := ir.New()
	kernel, err := g.AddNode("kernel", dtype.None, 0, nil, "k")
	require.NoError(t, err)
	g.BeginScope(kernel)
	dimA := intConst(t, g, 4)
	dimB := intConst(t, g, 7)
	a := floatConst(t, g, 1)
	a.Tensor().SetShape(shapealg.NewShape(dimA))
	b := floatConst(t, g, 2)
	b.Tensor().SetShape(shapealg.NewShape(dimB))
	require.NoError(t, g.EndScope())

	err = CheckKernelShapes(g)
	assert.ErrorIs(t, err, ErrShapeIncompatibleInKernel)
}

func TestCheckKernelShapes_MatmulAligningInnerDimsPasses(t *testing.T) {
	g := ir.New()
	rows := intConst(t, g, 2)
	inner := intConst(t, g, 3)
	cols := intConst(t, g, 4)
	a := floatConst(t, g, 1)
	a.Tensor().SetShape(shapealg.NewShape(rows, inner))
	b := floatConst(t, g, 2)
	b.Tensor().SetShape(shapealg.NewShape(inner, cols))
	mm, err := g.AddNode("matmul", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "mm")
	require.NoError(t, err)

	require.NoError(t, CheckKernelShapes(g))
	assert.Equal(t, []int{2, 4}, shapealg.GetShape(mm.Tensor().Shape(), shapealg.DefaultFill))
}

func TestCheckKernelShapes_MatmulMismatchedInnerDimsFails(t *testing.T) {
	g := ir.New()
	a := floatConst(t, g, 1)
	a.Tensor().SetShape(shapealg.NewShape(intConst(t, g, 2), intConst(t, g, 3)))
	b := floatConst(t, g, 2)
	b.Tensor().SetShape(shapealg.NewShape(intConst(t, g, 5), intConst(t, g, 4)))
	_, err := g.AddNode("matmul", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "mm")
	require.NoError(t, err)

	err = CheckKernelShapes(g)
	assert.ErrorIs(t, err, ir.ErrInnerDimensionMismatch)
}

func TestCheckKernelShapes_SqueezeConstantOneAxisPasses(t *testing.T) {
	g := ir.New()
	x := floatConst(t, g, 1)
	x.Tensor().SetShape(shapealg.NewShape(intConst(t, g, 1), intConst(t, g, 4)))
	axis := intConst(t, g, 0)
	sq, err := g.AddNode("squeeze", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: x,
		{Role: ir.RoleShape, Slot: 0}: axis,
	}, "sq")
	require.NoError(t, err)

	require.NoError(t, CheckKernelShapes(g))
	assert.Equal(t, []int{4}, shapealg.GetShape(sq.Tensor().Shape(), shapealg.DefaultFill))
}

func TestCheckKernelShapes_SqueezeNonUnitAxisFails(t *testing.T) {
	g := ir.New()
	x := floatConst(t, g, 1)
	x.Tensor().SetShape(shapealg.NewShape(intConst(t, g, 3), intConst(t, g, 4)))
	axis := intConst(t, g, 0)
	_, err := g.AddNode("squeeze", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: x,
		{Role: ir.RoleShape, Slot: 0}: axis,
	}, "sq")
	require.NoError(t, err)

	err = CheckKernelShapes(g)
	assert.ErrorIs(t, err, ir.ErrSqueezeNonUnit)
}
