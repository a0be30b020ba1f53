package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/shapealg"
)

func TestNode_ConstantValueAndSameNode(t *testing.T) {
	g := New()
	a := constNode(t, g, dtype.Int, 4)
	b := constNode(t, g, dtype.Int, 4)

	v, ok := a.ConstantValue()
	require.True(t, ok)
	assert.Equal(t, 4, v)

	var dim shapealg.DimNode = a
	assert.True(t, dim.SameNode(a))
	assert.False(t, dim.SameNode(b))
}

func TestNode_GetCommonParent(t *testing.T) {
	g := New()
	loopA, err := g.AddNode("loop", dtype.None, 0, nil, "loopA")
	require.NoError(t, err)
	g.BeginScope(loopA)
	innerA := constNode(t, g, dtype.Float, 1)
	require.NoError(t, g.EndScope())

	loopB, err := g.AddNode("loop", dtype.None, 0, nil, "loopB")
	require.NoError(t, err)
	g.BeginScope(loopB)
	innerB := constNode(t, g, dtype.Float, 2)
	require.NoError(t, g.EndScope())

	common, err := innerA.GetCommonParent(innerB)
	require.NoError(t, err)
	assert.Equal(t, g.Root(), common)

	same, err := innerA.GetCommonParent(loopA)
	require.NoError(t, err)
	assert.Equal(t, loopA, same)
}

func TestNode_GetCommonParent_NoSharedRootFails(t *testing.T) {
	g1 := New()
	g2 := New()
	a := constNode(t, g1, dtype.Float, 1)
	b := constNode(t, g2, dtype.Float, 1)

	_, err := a.GetCommonParent(b)
	assert.True(t, errors.Is(err, ErrNoCommonParent))
}

func TestNode_GetFinalVersion_ReturnsSelfWithoutModifiers(t *testing.T) {
	g := New()
	a := constNode(t, g, dtype.Float, 1)
	require.NoError(t, g.UpdateGraph())
	assert.Equal(t, a, a.GetFinalVersion())
}

func TestNode_MakeOutputsUseGivenNode_RewritesLaterConsumers(t *testing.T) {
	g := New()
	a := constNode(t, g, dtype.Float, 1)
	b := constNode(t, g, dtype.Float, 2)
	sum, err := g.AddNode("add", dtype.None, 0, map[ArgID]*Node{
		{Role: RoleInput, Slot: 0}: a,
		{Role: RoleInput, Slot: 1}: b,
	}, "sum")
	require.NoError(t, err)
	require.NoError(t, g.UpdateGraph())

	replacement := constNode(t, g, dtype.Float, 9)
	a.MakeOutputsUseGivenNode(replacement, 0, true)

	got, err := sum.Args().Get(RoleInput, 0)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
	assert.True(t, replacement.Modified())
}

func TestNode_Initialize_FailsWhenAlreadyInitialized(t *testing.T) {
	g := New()
	a := constNode(t, g, dtype.Float, 1)
	err := a.Initialize(a.Operation(), dtype.Float, 0, "again")
	assert.True(t, errors.Is(err, ErrNodeAlreadyInit))
}
