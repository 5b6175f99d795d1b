package dispatch

import (
	"errors"
	"fmt"
)

// ErrEmptyInput rejects a message that is blank after trimming.
var ErrEmptyInput = errors.New("empty message")

// ExternalCallError wraps a failed provider call.
type ExternalCallError struct {
	Provider string
	Code     string
	Err      error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s completion failed (%s): %v", e.Provider, e.Code, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }
