// Package catalog is the process-wide registry mapping operation names to
// their signatures: accepted input type tuples, output-type inference rule,
// and operation-class membership. The catalog is read-only after init, the
// way the spec requires (§5 "the operation catalog is read-only after
// init"). A graph takes its *Catalog explicitly through
// ir.NewWithCatalog, so tests can swap it out; ir.New and
// transform.OptimizeOperations use the process-wide instance Default()
// returns, pre-loaded with the built-in operations.
package catalog

import "github.com/tensorfrost-go/tfcore/x/compiler/dtype"

// Class identifies a category an Operation belongs to. An operation may
// belong to more than one class, so Class values are combined as a bitmask.
type Class uint8

const (
	ClassConstant Class = 1 << iota
	ClassModifier
	ClassMemoryOp
	ClassNondiff
	ClassStatic
)

// Has reports whether c includes the given class bit.
func (c Class) Has(bit Class) bool { return c&bit != 0 }

// ValidateFunc reports whether the given input type tuple is acceptable.
type ValidateFunc func(inputs []dtype.Type) bool

// OutputFunc computes the output type for a valid input type tuple. It is
// only ever called after ValidateFunc has returned true for the same
// tuple, so it may assume the inputs are well-formed.
type OutputFunc func(inputs []dtype.Type) dtype.Type

// Operation is an immutable descriptor for one named operation kind.
type Operation struct {
	Name     string
	Validate ValidateFunc
	Output   OutputFunc
	Classes  Class
}

// Is reports whether the operation belongs to the given class.
func (o *Operation) Is(c Class) bool { return o.Classes.Has(c) }

// Catalog is a name -> Operation registry. The zero value is not usable;
// construct with New or use Default().
type Catalog struct {
	ops map[string]*Operation
}

// New returns an empty catalog. Most callers want Default() instead.
func New() *Catalog {
	return &Catalog{ops: make(map[string]*Operation)}
}

// Register adds op to the catalog, overwriting any previous entry of the
// same name. Used both by builtins.go at init time and by tests that need
// a custom operation.
func (c *Catalog) Register(op *Operation) {
	c.ops[op.Name] = op
}

// Lookup finds an operation by name. Fails with ErrUnknownOperation if
// absent.
func (c *Catalog) Lookup(name string) (*Operation, error) {
	op, ok := c.ops[name]
	if !ok {
		return nil, newError("Lookup", name, "no such operation", ErrUnknownOperation)
	}
	return op, nil
}

// ValidateInputs reports whether inputs is an accepted type tuple for the
// named operation. Fails with ErrUnknownOperation if the name is unknown,
// ErrInvalidInputTypes if the tuple is rejected by the operation's rule.
func (c *Catalog) ValidateInputs(name string, inputs []dtype.Type) error {
	op, err := c.Lookup(name)
	if err != nil {
		return err
	}
	if !op.Validate(inputs) {
		return newError("ValidateInputs", name, "input type tuple rejected", ErrInvalidInputTypes)
	}
	return nil
}

// OutputType computes the output type for name given a valid inputs tuple.
// Callers must have validated inputs first; OutputType does not re-validate.
func (c *Catalog) OutputType(name string, inputs []dtype.Type) (dtype.Type, error) {
	op, err := c.Lookup(name)
	if err != nil {
		return dtype.None, err
	}
	return op.Output(inputs), nil
}

// IsClass reports whether the named operation belongs to class cls. Returns
// false (not an error) for an unknown operation, since class membership is
// used in hot transform-pass loops that already assume a valid graph.
func (c *Catalog) IsClass(name string, cls Class) bool {
	op, ok := c.ops[name]
	if !ok {
		return false
	}
	return op.Is(cls)
}

var defaultCatalog = newDefault()

// Default returns the process-wide catalog pre-populated with the built-in
// operations enumerated in builtins.go.
func Default() *Catalog { return defaultCatalog }

func newDefault() *Catalog {
	c := New()
	registerBuiltins(c)
	return c
}
