package artifact

import "fmt"

// WriteError represents a failure persisting extraction output
type WriteError struct {
	Message string
	Path    string
	Cause   error
}

func (e *WriteError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", e.Message, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("write error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("write error: %s", msg)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
