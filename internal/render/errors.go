// Package render prepares PDF inputs for extraction backends: validating
// documents before they are sent anywhere and rasterizing pages for backends
// that consume images.
package render

import "fmt"

// PreflightError represents a document that cannot be processed at all
type PreflightError struct {
	Message string
	Cause   error
}

func (e *PreflightError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("preflight error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("preflight error: %s", e.Message)
}

func (e *PreflightError) Unwrap() error {
	return e.Cause
}

// RenderError represents a failure while rasterizing pages
type RenderError struct {
	Message string
	Output  string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
