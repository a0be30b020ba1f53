package transform

import "fmt"

// Sentinel errors surfaced by the compile passes.
var (
	ErrShapeIncompatibleInKernel = fmt.Errorf("transform: incompatible shapes inside kernel")
	ErrUnknownGradientRule       = fmt.Errorf("transform: no gradient rule for operation")
	ErrUnresolvableOrder         = fmt.Errorf("transform: could not reach a consistent topological order")
)

// Error wraps a pass failure with the pass name and node context.
type Error struct {
	Pass    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform: %s: %s", e.Pass, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(pass, message string, err error) error {
	return &Error{Pass: pass, Message: message, Err: err}
}
