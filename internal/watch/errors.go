// Package watch observes a directory for incoming PDF files, waits for each
// one to stop changing, and reports it ready for extraction exactly once.
package watch

import "fmt"

// WatchError represents a failure of the watching mechanism itself. These are
// fatal: per-file trouble is handled inline and never surfaces as a WatchError.
type WatchError struct {
	Message string
	Cause   error
}

func (e *WatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("watch error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("watch error: %s", e.Message)
}

func (e *WatchError) Unwrap() error {
	return e.Cause
}
