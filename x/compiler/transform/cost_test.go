package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func TestComputeNodeCost_RanksOpClassesByExpectedWeight(t *testing.T) {
	g := ir.New()
	mem, err := g.AddNode("memory", dtype.Float, 0, nil, "m")
	require.NoError(t, err)
	value := floatConst(t, g, 1)
	store, err := g.AddNode("store", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}:  value,
		{Role: ir.RoleMemory, Slot: 0}: mem,
	}, "s")
	require.NoError(t, err)
	neg, err := g.AddNode("neg", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: value,
	}, "n")
	require.NoError(t, err)

	assert.Equal(t, 10, ComputeNodeCost(store))
	assert.Equal(t, 1, ComputeNodeCost(neg))
	assert.Greater(t, ComputeNodeCost(store), ComputeNodeCost(neg))
}

func TestComputeStatistics_CountsNodesAndKernels(t *testing.T) {
	g := ir.New()
	kernel, err := g.AddNode("kernel", dtype.None, 0, nil, "k")
	require.NoError(t, err)
	g.BeginScope(kernel)
	_ = floatConst(t, g, 1)
	require.NoError(t, g.EndScope())

	stats := ComputeStatistics(g)

	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.KernelCount)
	assert.Greater(t, stats.TotalCost, 0)
}
