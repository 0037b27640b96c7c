package ocr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TransientError represents an extraction failure worth retrying, such as a
// rate limit or a backend outage.
type TransientError struct {
	Message string
	Cause   error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("transient extraction error: %s", e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// PermanentError represents an extraction failure that retrying cannot fix,
// such as a corrupt document or rejected credentials.
type PermanentError struct {
	Message string
	Cause   error
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("permanent extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("permanent extraction error: %s", e.Message)
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsPermanentHTTPStatus returns true for status codes that indicate the
// request itself can never succeed.
func IsPermanentHTTPStatus(code int) bool {
	switch code {
	case 400, 401, 403, 404, 410, 413, 415, 451:
		return true
	default:
		return false
	}
}

// isPermanentGRPCCode mirrors IsPermanentHTTPStatus for gRPC backends.
// 429-equivalents (ResourceExhausted) and server-side trouble stay retryable.
func isPermanentGRPCCode(code codes.Code) bool {
	switch code {
	case codes.InvalidArgument,
		codes.NotFound,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.FailedPrecondition,
		codes.OutOfRange,
		codes.Unimplemented:
		return true
	default:
		return false
	}
}

// classify maps a backend error into the transient/permanent taxonomy.
// Already-classified errors and context cancellation pass through untouched;
// anything unrecognized is treated as transient so a bounded retry gets a
// chance before the file is failed.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var te *TransientError
	var pe *PermanentError
	if errors.As(err, &te) || errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Message: "request deadline exceeded", Cause: err}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if IsPermanentHTTPStatus(gerr.Code) {
			return &PermanentError{Message: fmt.Sprintf("request rejected (HTTP %d)", gerr.Code), Cause: err}
		}
		return &TransientError{Message: fmt.Sprintf("request failed (HTTP %d)", gerr.Code), Cause: err}
	}

	if st, ok := status.FromError(err); ok {
		if isPermanentGRPCCode(st.Code()) {
			return &PermanentError{Message: fmt.Sprintf("request rejected (%s)", st.Code()), Cause: err}
		}
		return &TransientError{Message: fmt.Sprintf("request failed (%s)", st.Code()), Cause: err}
	}

	return &TransientError{Message: "extraction request failed", Cause: err}
}
