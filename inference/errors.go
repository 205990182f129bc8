package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for runtime operations.
var (
	// ErrUnknownRuntime indicates the requested runtime is not registered.
	ErrUnknownRuntime = errors.New("unknown runtime")

	// ErrModelLoad indicates the model failed to load. Fatal at startup.
	ErrModelLoad = errors.New("model load failed")

	// ErrNoChatTemplate indicates a chat-template render was attempted on a
	// tokenizer without an assigned template.
	ErrNoChatTemplate = errors.New("no chat template assigned")

	// ErrGeneration indicates the runtime failed while producing tokens.
	ErrGeneration = errors.New("generation failed")
)

// Error wraps runtime errors with the failing operation.
type Error struct {
	Op  string // Operation that failed ("load", "generate", "render")
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new runtime error.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
