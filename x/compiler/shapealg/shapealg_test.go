package shapealg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constDim is a trivial DimNode used only in tests: every instance is a
// distinct identity unless explicitly aliased, and optionally carries a
// compile-time constant value.
type constDim struct {
	id    int
	value int
	isConst bool
}

func (d *constDim) SameNode(other DimNode) bool {
	o, ok := other.(*constDim)
	return ok && o == d
}

func (d *constDim) ConstantValue() (int, bool) {
	return d.value, d.isConst
}

func c(v int) *constDim { return &constDim{value: v, isConst: true} }
func dyn(id int) *constDim { return &constDim{id: id} }

func TestCompare_IdenticalShape_Exact(t *testing.T) {
	a := NewShape(c(2), c(3), c(4))
	res := Compare(a, a, true)
	require.True(t, res.Compatible)
	assert.False(t, res.Broadcast)
	assert.Equal(t, 3, res.BroadcastShape.Rank())
}

func TestCompare_BroadcastConstantOne(t *testing.T) {
	a := NewShape(c(1), c(4))
	b := NewShape(c(3), c(4))
	res := Compare(a, b, false)
	require.True(t, res.Compatible)
	assert.True(t, res.Broadcast)
	got := GetShape(res.BroadcastShape, DefaultFill)
	assert.Equal(t, []int{3, 4}, got)
}

func TestCompare_ExactDisablesBroadcastOne(t *testing.T) {
	a := NewShape(c(1), c(4))
	b := NewShape(c(3), c(4))
	res := Compare(a, b, true)
	assert.False(t, res.Compatible)
}

func TestCompare_RightAlignedRankMismatch(t *testing.T) {
	a := NewShape(c(2), c(3), c(4))
	b := NewShape(c(3), c(4))
	res := Compare(a, b, false)
	require.True(t, res.Compatible)
	assert.Equal(t, 3, res.ADim)
	assert.Equal(t, 2, res.BDim)
	assert.Equal(t, 2, res.MinDim)
	got := GetShape(res.BroadcastShape, DefaultFill)
	assert.Equal(t, []int{2, 3, 4}, got)
}

func TestCompare_Incompatible(t *testing.T) {
	a := NewShape(c(3), c(4))
	b := NewShape(c(5), c(5))
	res := Compare(a, b, false)
	assert.False(t, res.Compatible)
}

func TestCompare_DynamicDimsSameNode(t *testing.T) {
	n := dyn(1)
	a := NewShape(n, c(4))
	b := NewShape(n, c(4))
	res := Compare(a, b, true)
	assert.True(t, res.Compatible)
}

func TestExpandDimensions_PadsWithConstantOne(t *testing.T) {
	a := NewShape(c(3), c(4))
	expanded := ExpandDimensions(a, 4, func() DimNode { return c(1) })
	require.Equal(t, 4, expanded.Rank())
	got := GetShape(expanded, DefaultFill)
	assert.Equal(t, []int{1, 1, 3, 4}, got)
}

func TestExpandDimensions_NoopWhenAlreadyAtRank(t *testing.T) {
	a := NewShape(c(3), c(4))
	expanded := ExpandDimensions(a, 2, func() DimNode { return c(1) })
	assert.Equal(t, a, expanded)
}

func TestGetShape_UsesDefaultForDynamicDims(t *testing.T) {
	s := NewShape(dyn(1), c(4))
	got := GetShape(s, DefaultFill)
	assert.Equal(t, []int{DefaultFill, 4}, got)
}

func TestMatmulShape_MatchingInnerDims(t *testing.T) {
	a := NewShape(c(2), c(3))
	b := NewShape(c(3), c(4))
	out, ok := MatmulShape(a, b)
	require.True(t, ok)
	assert.Equal(t, []int{2, 4}, GetShape(out, DefaultFill))
}

func TestMatmulShape_InnerDimensionMismatchFails(t *testing.T) {
	a := NewShape(c(2), c(3))
	b := NewShape(c(5), c(4))
	_, ok := MatmulShape(a, b)
	assert.False(t, ok)
}

func TestMatmulShape_BroadcastsBatchDims(t *testing.T) {
	a := NewShape(c(1), c(2), c(3))
	b := NewShape(c(7), c(3), c(4))
	out, ok := MatmulShape(a, b)
	require.True(t, ok)
	assert.Equal(t, []int{7, 2, 4}, GetShape(out, DefaultFill))
}

func TestSqueeze_RemovesConstantOneAxis(t *testing.T) {
	s := NewShape(c(1), c(4))
	out, ok := Squeeze(s, 0)
	require.True(t, ok)
	assert.Equal(t, []int{4}, GetShape(out, DefaultFill))
}

func TestSqueeze_NonUnitAxisFails(t *testing.T) {
	s := NewShape(c(3), c(4))
	_, ok := Squeeze(s, 0)
	assert.False(t, ok)
}

func TestSqueeze_NonConstantAxisFails(t *testing.T) {
	s := NewShape(dyn(1), c(4))
	_, ok := Squeeze(s, 0)
	assert.False(t, ok)
}
