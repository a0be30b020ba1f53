package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
)

func TestDefault_LookupKnownOps(t *testing.T) {
	c := Default()

	op, err := c.Lookup("add")
	require.NoError(t, err)
	assert.Equal(t, "add", op.Name)
}

func TestDefault_LookupUnknownOp(t *testing.T) {
	c := Default()

	_, err := c.Lookup("frobnicate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownOperation))
}

func TestValidateInputs_Arithmetic(t *testing.T) {
	c := Default()

	require.NoError(t, c.ValidateInputs("add", []dtype.Type{dtype.Float, dtype.Float}))
	err := c.ValidateInputs("add", []dtype.Type{dtype.Bool, dtype.Bool})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInputTypes))
}

func TestOutputType_Comparison(t *testing.T) {
	c := Default()

	out, err := c.OutputType("eq", []dtype.Type{dtype.Int, dtype.Int})
	require.NoError(t, err)
	assert.Equal(t, dtype.Bool, out)
}

func TestOutputType_Arithmetic_PreservesInputType(t *testing.T) {
	c := Default()

	out, err := c.OutputType("mul", []dtype.Type{dtype.Int, dtype.Int})
	require.NoError(t, err)
	assert.Equal(t, dtype.Int, out)
}

func TestIsClass(t *testing.T) {
	c := Default()

	assert.True(t, c.IsClass("store", ClassMemoryOp))
	assert.True(t, c.IsClass("store", ClassModifier))
	assert.False(t, c.IsClass("add", ClassMemoryOp))
	assert.True(t, c.IsClass("const", ClassConstant))
	assert.True(t, c.IsClass("loop", ClassNondiff))
	assert.False(t, c.IsClass("unknown_op", ClassNondiff))
}

func TestMatmulAndDot_FixedFloatOutput(t *testing.T) {
	c := Default()

	out, err := c.OutputType("matmul", []dtype.Type{dtype.Float, dtype.Float})
	require.NoError(t, err)
	assert.Equal(t, dtype.Float, out)

	out, err = c.OutputType("dot", []dtype.Type{dtype.Float, dtype.Float})
	require.NoError(t, err)
	assert.Equal(t, dtype.Float, out)
}
