package ir

import "github.com/tensorfrost-go/tfcore/x/compiler/shapealg"

// Tensor is the shape-bearing handle a compiling node carries once its
// output is known to be an array rather than a scalar. It is distinct
// from the backing memory a tensormem.Manager allocates for it: Tensor
// describes shape and dtype at compile time, the manager's Buffer is the
// runtime allocation the compiled program reads and writes.
type Tensor struct {
	node  *Node
	shape shapealg.Shape
}

func newTensor(n *Node) *Tensor {
	return &Tensor{node: n}
}

// Node returns the node this tensor describes.
func (t *Tensor) Node() *Node { return t.node }

// Shape returns the tensor's symbolic shape, as computed by the shape
// algebra over this node's Shape-role argument nodes.
func (t *Tensor) Shape() shapealg.Shape { return t.shape }

// SetShape records the tensor's symbolic shape. Called by the shape
// inference pass once a node's Shape-role inputs are known.
func (t *Tensor) SetShape(s shapealg.Shape) { t.shape = s }

// MatmulShape computes the output shape of a @ b, failing with
// ErrInnerDimensionMismatch when a's columns don't align with b's rows (or
// either operand is rank < 2), per the batched-matmul boundary behavior.
func MatmulShape(a, b *Tensor) (shapealg.Shape, error) {
	out, ok := shapealg.MatmulShape(a.Shape(), b.Shape())
	if !ok {
		return shapealg.Shape{}, newError("MatmulShape", "inner dimensions do not match", ErrInnerDimensionMismatch)
	}
	return out, nil
}

// Squeeze removes dimension axis from t's shape, failing with
// ErrSqueezeNonUnit when that axis isn't statically known to be 1.
func Squeeze(t *Tensor, axis int) (shapealg.Shape, error) {
	out, ok := shapealg.Squeeze(t.Shape(), axis)
	if !ok {
		return shapealg.Shape{}, newError("Squeeze", "axis is not statically known to be 1", ErrSqueezeNonUnit)
	}
	return out, nil
}
