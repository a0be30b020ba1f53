package buffer

import "fmt"

// Sentinel errors for the buffer pool. Match against these with errors.Is,
// not the formatted message.
var (
	// ErrZeroSize is returned by TryAllocate for a zero-byte request.
	ErrZeroSize = fmt.Errorf("buffer: requested size is zero")
	// ErrBufferNotMarkedForDeletion is returned by Remove for a buffer
	// UpdateTick has not yet aged past MaxUnusedTicks.
	ErrBufferNotMarkedForDeletion = fmt.Errorf("buffer: not marked for deletion")
)

// Error wraps a buffer pool failure with the operation and message context,
// following this repo's {Op, Message, Err} convention.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("buffer: %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, message string, err error) error {
	return &Error{Op: op, Message: message, Err: err}
}
