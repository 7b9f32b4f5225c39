package ansiblefmt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON is returned by Parse when a fragment is not strict JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNoMatch means the text ended before a delimiter was closed.
	ErrNoMatch = errors.New("no matching delimiter")
)

// FormatError aborts a whole Format call. No partial output accompanies it.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format failed: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
