package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func TestTryReplaceModificationsWithVersions_ForwardsStoreToLoad(t *testing.T) {
	g := ir.New()
	mem, err := g.AddNode("memory", dtype.Float, 0, nil, "m")
	require.NoError(t, err)
	value := floatConst(t, g, 7)
	_, err = g.AddNode("store", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}:  value,
		{Role: ir.RoleMemory, Slot: 0}: mem,
	}, "store")
	require.NoError(t, err)
	load, err := g.AddNode("load", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}:  mem,
		{Role: ir.RoleMemory, Slot: 0}: mem,
	}, "load")
	require.NoError(t, err)
	consumer, err := g.AddNode("neg", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: load,
	}, "consumer")
	require.NoError(t, err)

	require.NoError(t, TryReplaceModificationsWithVersions(g))

	src, err := consumer.Args().Get(ir.RoleInput, 0)
	require.NoError(t, err)
	assert.Same(t, value, src)
}

func TestTryReplaceModificationsWithVersions_StopsAtInterveningWrite(t *testing.T) {
	g := ir.New()
	mem, err := g.AddNode("memory", dtype.Float, 0, nil, "m")
	require.NoError(t, err)
	first := floatConst(t, g, 1)
	_, err = g.AddNode("store", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}:  first,
		{Role: ir.RoleMemory, Slot: 0}: mem,
	}, "store1")
	require.NoError(t, err)
	second := floatConst(t, g, 2)
	_, err = g.AddNode("atomic_add", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}:  second,
		{Role: ir.RoleMemory, Slot: 0}: mem,
	}, "bump")
	require.NoError(t, err)
	load, err := g.AddNode("load", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}:  mem,
		{Role: ir.RoleMemory, Slot: 0}: mem,
	}, "load")
	require.NoError(t, err)
	consumer, err := g.AddNode("neg", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: load,
	}, "consumer")
	require.NoError(t, err)

	require.NoError(t, TryReplaceModificationsWithVersions(g))

	src, err := consumer.Args().Get(ir.RoleInput, 0)
	require.NoError(t, err)
	assert.Same(t, load, src)
}
