package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

func floatConst(t *testing.T, g *ir.Graph, value float32) *ir.Node {
	t.Helper()
	n, err := g.AddNode("const", dtype.Float, uint64(math.Float32bits(value)), nil, "c")
	require.NoError(t, err)
	return n
}

func intConst(t *testing.T, g *ir.Graph, value int) *ir.Node {
	t.Helper()
	n, err := g.AddNode("const", dtype.Int, uint64(uint32(int32(value))), nil, "c")
	require.NoError(t, err)
	return n
}
