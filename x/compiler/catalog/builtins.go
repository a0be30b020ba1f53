package catalog

import "github.com/tensorfrost-go/tfcore/x/compiler/dtype"

// registerBuiltins installs the minimum operation set required by spec.md
// §4.1: arithmetic/comparison primitives, conversions, reductions, memory
// ops, structured control, scalar constants, memory declaration, indexing,
// shape ops, gradient request and region markers.
func registerBuiltins(c *Catalog) {
	for _, op := range []*Operation{
		// Arithmetic primitives: numeric in, same numeric type out.
		binary("add"), binary("sub"), binary("mul"), binary("div"), binary("mod"),
		binary("min"), binary("max"),
		unary("neg"), unary("exp"), unary("log"), unary("sqrt"), unary("abs"),

		// Comparisons: numeric in, Bool out.
		comparison("eq"), comparison("neq"), comparison("lt"), comparison("lte"),
		comparison("gt"), comparison("gte"),

		// Boolean logic.
		binaryBool("and"), binaryBool("or"), unaryBool("not"),
		{
			Name:     "select",
			Validate: arity(3),
			Output:   outputOf(1),
			Classes:  0,
		},

		// Conversions: fixed target type regardless of input.
		convert("convert_float", dtype.Float),
		convert("convert_int", dtype.Int),
		convert("convert_uint", dtype.Uint),
		convert("convert_bool", dtype.Bool),

		// Reductions over one axis; output type equals input type.
		reduction("dim_sum"), reduction("dim_max"), reduction("dim_min"), reduction("dim_mean"),

		// Memory ops.
		{Name: "load", Validate: arity(1), Output: constOutput(dtype.Float), Classes: ClassMemoryOp},
		// store/set/atomic_* take their value through the sole RoleInput
		// slot; the target memory and access index are structural edges
		// (RoleMemory, RoleIndex) that inputTypeTuple never counts.
		{Name: "store", Validate: arity(1), Output: constOutput(dtype.None), Classes: ClassMemoryOp | ClassModifier},
		{Name: "set", Validate: arity(1), Output: constOutput(dtype.None), Classes: ClassMemoryOp | ClassModifier},
		{Name: "deallocate", Validate: arity(0), Output: constOutput(dtype.None), Classes: ClassMemoryOp},
		{Name: "atomic_add", Validate: arity(1), Output: constOutput(dtype.None), Classes: ClassMemoryOp | ClassModifier},
		{Name: "atomic_max", Validate: arity(1), Output: constOutput(dtype.None), Classes: ClassMemoryOp | ClassModifier},
		{Name: "atomic_min", Validate: arity(1), Output: constOutput(dtype.None), Classes: ClassMemoryOp | ClassModifier},

		// Structured control.
		{Name: "loop", Validate: anyInputs(), Output: constOutput(dtype.None), Classes: ClassNondiff},
		{Name: "if", Validate: anyInputs(), Output: constOutput(dtype.None), Classes: ClassNondiff},
		{Name: "kernel", Validate: anyInputs(), Output: constOutput(dtype.None), Classes: ClassNondiff | ClassStatic},
		{Name: "break", Validate: arity(0), Output: constOutput(dtype.None), Classes: ClassNondiff},
		{Name: "continue", Validate: arity(0), Output: constOutput(dtype.None), Classes: ClassNondiff},

		// Scalar constant: a literal carried in the node's inline payload.
		{Name: "const", Validate: arity(0), Output: constOutput(dtype.Float), Classes: ClassConstant | ClassStatic},

		// Memory declaration.
		{Name: "memory", Validate: anyInputs(), Output: constOutput(dtype.Float), Classes: ClassMemoryOp | ClassStatic},
		{Name: "input_shape", Validate: arity(0), Output: constOutput(dtype.Int), Classes: ClassConstant | ClassStatic},

		// Indexing primitives: always produce an Int, take no tensor inputs.
		{Name: "dim_id", Validate: arity(0), Output: constOutput(dtype.Int), Classes: ClassStatic},
		{Name: "thread_id", Validate: arity(0), Output: constOutput(dtype.Int), Classes: ClassStatic},
		{Name: "block_id", Validate: arity(0), Output: constOutput(dtype.Int), Classes: ClassStatic},
		{Name: "block_thread_id", Validate: arity(0), Output: constOutput(dtype.Int), Classes: ClassStatic},

		// Shape ops.
		{Name: "reshape", Validate: atLeast(1), Output: outputOf(0), Classes: 0},
		{Name: "transpose", Validate: atLeast(1), Output: outputOf(0), Classes: 0},
		{Name: "squeeze", Validate: atLeast(1), Output: outputOf(0), Classes: 0},
		{Name: "unsqueeze", Validate: atLeast(1), Output: outputOf(0), Classes: 0},
		{Name: "matmul", Validate: arity(2), Output: constOutput(dtype.Float), Classes: 0},
		{Name: "dot", Validate: arity(2), Output: constOutput(dtype.Float), Classes: 0},

		// Autodiff request: backwards_grad(output, target) resolves to
		// d(output)/d(target) once transform.ComputeAutodiff runs.
		{Name: "backwards_grad", Validate: arity(2), Output: outputOf(0), Classes: ClassNondiff},
		// detach_grad(x) forwards x but blocks gradient flow into it.
		{Name: "detach_grad", Validate: arity(1), Output: outputOf(0), Classes: ClassNondiff},
		// pass_grad(x, redirect) forwards x, but routes its incoming
		// gradient to redirect instead of x.
		{Name: "pass_grad", Validate: arity(2), Output: outputOf(0), Classes: 0},

		// Region markers, used by the codegen boundary only.
		{Name: "begin_region", Validate: anyInputs(), Output: constOutput(dtype.None), Classes: ClassStatic},
		{Name: "end_region", Validate: anyInputs(), Output: constOutput(dtype.None), Classes: ClassStatic},
	} {
		c.Register(op)
	}
}

func arity(n int) ValidateFunc {
	return func(inputs []dtype.Type) bool { return len(inputs) == n }
}

func atLeast(n int) ValidateFunc {
	return func(inputs []dtype.Type) bool { return len(inputs) >= n }
}

func anyInputs() ValidateFunc {
	return func(inputs []dtype.Type) bool { return true }
}

func constOutput(t dtype.Type) OutputFunc {
	return func(inputs []dtype.Type) dtype.Type { return t }
}

func outputOf(index int) OutputFunc {
	return func(inputs []dtype.Type) dtype.Type {
		if index < 0 || index >= len(inputs) {
			return dtype.None
		}
		return inputs[index]
	}
}

func allNumeric(inputs []dtype.Type) bool {
	if len(inputs) == 0 {
		return false
	}
	for _, t := range inputs {
		if !t.IsNumeric() {
			return false
		}
	}
	return true
}

func binary(name string) *Operation {
	return &Operation{
		Name:     name,
		Validate: func(inputs []dtype.Type) bool { return len(inputs) == 2 && allNumeric(inputs) },
		Output:   outputOf(0),
	}
}

func unary(name string) *Operation {
	return &Operation{
		Name:     name,
		Validate: func(inputs []dtype.Type) bool { return len(inputs) == 1 && allNumeric(inputs) },
		Output:   outputOf(0),
	}
}

func comparison(name string) *Operation {
	return &Operation{
		Name:     name,
		Validate: func(inputs []dtype.Type) bool { return len(inputs) == 2 && allNumeric(inputs) },
		Output:   constOutput(dtype.Bool),
	}
}

func binaryBool(name string) *Operation {
	return &Operation{
		Name: name,
		Validate: func(inputs []dtype.Type) bool {
			return len(inputs) == 2 && inputs[0] == dtype.Bool && inputs[1] == dtype.Bool
		},
		Output: constOutput(dtype.Bool),
	}
}

func unaryBool(name string) *Operation {
	return &Operation{
		Name:     name,
		Validate: func(inputs []dtype.Type) bool { return len(inputs) == 1 && inputs[0] == dtype.Bool },
		Output:   constOutput(dtype.Bool),
	}
}

func convert(name string, target dtype.Type) *Operation {
	return &Operation{
		Name:     name,
		Validate: func(inputs []dtype.Type) bool { return len(inputs) == 1 && inputs[0].IsNumeric() },
		Output:   constOutput(target),
	}
}

func reduction(name string) *Operation {
	return &Operation{
		Name:     name,
		Validate: func(inputs []dtype.Type) bool { return len(inputs) == 1 && allNumeric(inputs) },
		Output:   outputOf(0),
	}
}
