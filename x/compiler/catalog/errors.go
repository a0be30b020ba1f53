package catalog

import "fmt"

// Sentinel errors identifying the catalog failure kinds from the spec.
// Wrap with errors.Is; callers should not match on Error() strings.
var (
	ErrUnknownOperation  = fmt.Errorf("catalog: unknown operation")
	ErrInvalidInputTypes = fmt.Errorf("catalog: invalid input types")
	ErrInvalidOutputType = fmt.Errorf("catalog: invalid output type")
)

// Error wraps a catalog failure with the operation name and context,
// following the {Op, Message, Err} shape used throughout this repo.
type Error struct {
	Op      string // the catalog operation being performed, e.g. "Lookup"
	Name    string // the operation name involved, if any
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("catalog: %s(%q): %s", e.Op, e.Name, e.Message)
	}
	return fmt.Sprintf("catalog: %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, name, message string, err error) error {
	return &Error{Op: op, Name: name, Message: message, Err: err}
}
