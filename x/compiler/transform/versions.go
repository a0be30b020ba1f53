package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// TryReplaceModificationsWithVersions forwards a store's value directly to
// a later load of the same memory at the same index, provided no other
// write to that memory lands in between (classic store-to-load
// forwarding): the load's consumers are rewired to read the stored value.
// The load node itself stays in the graph; RemoveUnusedOperations never
// removes memory ops.
func TryReplaceModificationsWithVersions(g *ir.Graph) error {
	if err := g.UpdateGraph(); err != nil {
		return err
	}
	forwarded := 0
	lastStored := map[*ir.Node]storedValue{}
	for _, n := range g.AllNodes() {
		if !n.IsMemoryOp() {
			continue
		}
		mem, err := n.Args().Get(ir.RoleMemory, 0)
		if err != nil {
			continue
		}
		switch n.Operation().Name {
		case "store":
			value, err := n.Args().Get(ir.RoleInput, 0)
			if err != nil {
				continue
			}
			lastStored[mem] = storedValue{value: value, index: indexOf(n)}
		case "load":
			sv, ok := lastStored[mem]
			if !ok || sv.index != indexOf(n) {
				continue
			}
			n.MakeOutputsUseGivenNode(sv.value, 0, false)
			forwarded++
		default:
			delete(lastStored, mem)
		}
	}
	tflog.Log.Debug().Int("forwarded", forwarded).Msg("forwarded stores directly to loads")
	return g.UpdateGraph()
}

type storedValue struct {
	value *ir.Node
	index *ir.Node
}

func indexOf(n *ir.Node) *ir.Node {
	idx, err := n.Args().Get(ir.RoleIndex, 0)
	if err != nil {
		return nil
	}
	return idx
}
