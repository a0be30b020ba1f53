// Package shapealg implements the shape algebra (C2): comparing,
// broadcasting and expanding symbolic shapes, where each dimension is
// itself produced by a graph node rather than a plain integer.
//
// shapealg never constructs or mutates IR nodes — it only reasons about
// the DimNode capability a node exposes, so it has no dependency on
// package ir and can be unit tested without building a real graph.
package shapealg

// DimNode is the capability a shape-producing IR node exposes to the shape
// algebra: identity comparison and, for constant dimensions, their value.
type DimNode interface {
	// SameNode reports whether other is the identical graph node (pointer
	// identity in the owning IR, not value equality).
	SameNode(other DimNode) bool
	// ConstantValue returns the node's compile-time integer value and true
	// if the node belongs to the Constant operation class. Non-constant
	// shape nodes (e.g. a runtime-computed dimension) return (0, false).
	ConstantValue() (int, bool)
}

// Shape is an ordered sequence of shape-producing nodes, one per dimension.
type Shape struct {
	Dims []DimNode
}

// NewShape builds a Shape from the given dimension nodes, outermost first.
func NewShape(dims ...DimNode) Shape {
	return Shape{Dims: dims}
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s.Dims) }

// dimEqual reports whether two dimension nodes denote the same size: either
// the identical node, or both constants with equal value.
func dimEqual(a, b DimNode) bool {
	if a.SameNode(b) {
		return true
	}
	av, aok := a.ConstantValue()
	bv, bok := b.ConstantValue()
	return aok && bok && av == bv
}

func isConstantOne(d DimNode) bool {
	v, ok := d.ConstantValue()
	return ok && v == 1
}

// CompareResult is the full outcome of comparing two shapes, per spec.md's
// Compare(a, b, exact?).
type CompareResult struct {
	Compatible     bool
	BroadcastShape Shape
	// Broadcast is true if any overlapping dimension pair required the
	// constant-1 broadcast rule (as opposed to being trivially identical).
	Broadcast bool
	// BroadcastDim reports, per dimension of BroadcastShape (outermost
	// first), whether that output dimension came from a broadcast.
	BroadcastDim []bool
	ADim         int
	BDim         int
	MinDim       int
}

// Compare checks whether a and b broadcast together under the usual
// right-aligned, 1-or-equal rule. When exact is true the "constant 1"
// broadcast relaxation is disabled: only identical-node or equal-constant
// dimensions are accepted, and ranks must match.
func Compare(a, b Shape, exact bool) CompareResult {
	ra, rb := a.Rank(), b.Rank()
	result := CompareResult{ADim: ra, BDim: rb, MinDim: min(ra, rb)}

	outRank := ra
	if rb > outRank {
		outRank = rb
	}
	out := make([]DimNode, outRank)
	broadcastDim := make([]bool, outRank)

	if exact && ra != rb {
		result.Compatible = false
		return result
	}

	compatible := true
	for i := 0; i < outRank; i++ {
		// Right-align: index from the end of each shape.
		ai := ra - outRank + i
		bi := rb - outRank + i

		var ad, bd DimNode
		if ai >= 0 {
			ad = a.Dims[ai]
		}
		if bi >= 0 {
			bd = b.Dims[bi]
		}

		switch {
		case ad != nil && bd != nil:
			if dimEqual(ad, bd) {
				out[i] = ad
				continue
			}
			if !exact && isConstantOne(ad) {
				out[i] = bd
				broadcastDim[i] = true
				result.Broadcast = true
				continue
			}
			if !exact && isConstantOne(bd) {
				out[i] = ad
				broadcastDim[i] = true
				result.Broadcast = true
				continue
			}
			compatible = false
		case ad != nil:
			out[i] = ad
		case bd != nil:
			out[i] = bd
		default:
			compatible = false
		}
	}

	result.Compatible = compatible
	if compatible {
		result.BroadcastShape = Shape{Dims: out}
		result.BroadcastDim = broadcastDim
	}
	return result
}

// ExpandDimensions left-pads s with constant-1 dimensions, built by calling
// makeOne once per padding dimension needed, until s has rank newDim. If
// newDim <= s.Rank(), s is returned unchanged (ExpandDimensions(rank(a), a)
// == a, per spec.md's idempotence property).
func ExpandDimensions(s Shape, newDim int, makeOne func() DimNode) Shape {
	if newDim <= s.Rank() {
		return s
	}
	pad := newDim - s.Rank()
	out := make([]DimNode, 0, newDim)
	for i := 0; i < pad; i++ {
		out = append(out, makeOne())
	}
	out = append(out, s.Dims...)
	return Shape{Dims: out}
}

// GetShape returns s as a plain []int, using each dimension's constant
// value where known and def elsewhere. This is a heuristic sizing helper
// only — never used for correctness, per spec.md §4.2.
func GetShape(s Shape, def int) []int {
	out := make([]int, s.Rank())
	for i, d := range s.Dims {
		if v, ok := d.ConstantValue(); ok {
			out[i] = v
		} else {
			out[i] = def
		}
	}
	return out
}

// MatmulShape computes the output shape of a batched matrix multiply
// a @ b: a's last dimension (its columns) must align with b's
// second-to-last dimension (its rows) the way dimEqual aligns any other
// pair, and any leading batch dimensions broadcast using Compare's usual
// right-aligned rule. ok is false if either operand has fewer than two
// dimensions or the inner dimensions don't align — the caller decides how
// to report that as a failure.
func MatmulShape(a, b Shape) (Shape, bool) {
	if a.Rank() < 2 || b.Rank() < 2 {
		return Shape{}, false
	}
	aInner := a.Dims[a.Rank()-1]
	bInner := b.Dims[b.Rank()-2]
	if !dimEqual(aInner, bInner) {
		return Shape{}, false
	}
	aBatch := Shape{Dims: a.Dims[:a.Rank()-2]}
	bBatch := Shape{Dims: b.Dims[:b.Rank()-2]}
	batch := Compare(aBatch, bBatch, false)
	if !batch.Compatible {
		return Shape{}, false
	}
	out := make([]DimNode, 0, len(batch.BroadcastShape.Dims)+2)
	out = append(out, batch.BroadcastShape.Dims...)
	out = append(out, a.Dims[a.Rank()-2], b.Dims[b.Rank()-1])
	return Shape{Dims: out}, true
}

// Squeeze removes dimension axis from s. ok is false if axis is out of
// range or that dimension isn't statically known to be 1 — squeezing a
// dimension whose size isn't known at compile time would silently change
// the tensor's element count, so it is rejected rather than guessed at.
func Squeeze(s Shape, axis int) (Shape, bool) {
	if axis < 0 || axis >= s.Rank() {
		return Shape{}, false
	}
	if !isConstantOne(s.Dims[axis]) {
		return Shape{}, false
	}
	out := make([]DimNode, 0, s.Rank()-1)
	out = append(out, s.Dims[:axis]...)
	out = append(out, s.Dims[axis+1:]...)
	return Shape{Dims: out}, true
}

// DefaultFill is the default value used when a dimension's size is not
// statically known, per spec.md §4.2 ("default (256)").
const DefaultFill = 256

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
