package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func buildElementwiseChain(t *testing.T, g *ir.Graph) (a, b, sum, doubled *ir.Node) {
	t.Helper()
	var err error
	a, err = g.AddNode("memory", dtype.Float, 0, nil, "a")
	require.NoError(t, err)
	b, err = g.AddNode("memory", dtype.Float, 0, nil, "b")
	require.NoError(t, err)
	sum, err = g.AddNode("add", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "sum")
	require.NoError(t, err)
	doubled, err = g.AddNode("mul", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: sum,
		{Role: ir.RoleInput, Slot: 1}: sum,
	}, "doubled")
	require.NoError(t, err)
	return a, b, sum, doubled
}

func TestSeparateOperationsIntoKernels_FusesConsecutiveCompute(t *testing.T) {
	g := ir.New()
	_, _, sum, doubled := buildElementwiseChain(t, g)

	require.NoError(t, SeparateOperationsIntoKernels(g))

	kernel := sum.Parent()
	require.NotNil(t, kernel)
	assert.Equal(t, "kernel", kernel.Operation().Name)
	assert.Equal(t, kernel, doubled.Parent())
}

func TestSeparateOperationsIntoKernels_LeavesSingleNodeUnwrapped(t *testing.T) {
	g := ir.New()
	a, err := g.AddNode("memory", dtype.Float, 0, nil, "a")
	require.NoError(t, err)
	neg, err := g.AddNode("neg", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
	}, "neg")
	require.NoError(t, err)

	require.NoError(t, SeparateOperationsIntoKernels(g))

	assert.Equal(t, g.Root(), neg.Parent())
}

func TestAddKernelGlobalLoadOperations_WrapsExternalValue(t *testing.T) {
	g := ir.New()
	_, _, sum, doubled := buildElementwiseChain(t, g)
	require.NoError(t, SeparateOperationsIntoKernels(g))
	kernel := sum.Parent()

	require.NoError(t, AddKernelGlobalLoadOperations(g))

	src, err := sum.Args().Get(ir.RoleInput, 0)
	require.NoError(t, err)
	assert.Equal(t, "load", src.Operation().Name)
	assert.Equal(t, kernel, src.Parent())
	_ = doubled
}

func TestAddKernelGlobalLoadOperations_SharesOneLoadPerSource(t *testing.T) {
	g := ir.New()
	a, err := g.AddNode("memory", dtype.Float, 0, nil, "a")
	require.NoError(t, err)
	n1, err := g.AddNode("neg", dtype.None, 0, map[ir.ArgID]*ir.Node{{Role: ir.RoleInput, Slot: 0}: a}, "n1")
	require.NoError(t, err)
	n2, err := g.AddNode("abs", dtype.None, 0, map[ir.ArgID]*ir.Node{{Role: ir.RoleInput, Slot: 0}: a}, "n2")
	require.NoError(t, err)
	require.NoError(t, SeparateOperationsIntoKernels(g))
	require.NoError(t, AddKernelGlobalLoadOperations(g))

	s1, _ := n1.Args().Get(ir.RoleInput, 0)
	s2, _ := n2.Args().Get(ir.RoleInput, 0)
	assert.Same(t, s1, s2)
}

func TestAddKernelGlobalStoreOperations_MarksEscapingValue(t *testing.T) {
	g := ir.New()
	_, _, sum, doubled := buildElementwiseChain(t, g)
	require.NoError(t, SeparateOperationsIntoKernels(g))
	kernel := sum.Parent()

	_, err := g.AddNode("neg", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: sum,
	}, "outside_consumer")
	require.NoError(t, err)

	require.NoError(t, AddKernelGlobalStoreOperations(g))

	var storeFound bool
	for _, n := range kernelBody(kernel) {
		if n.Operation() != nil && n.Operation().Name == "store" {
			storeFound = true
		}
	}
	assert.True(t, storeFound)
	_ = doubled
}
