package ocr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTransientError_Format(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransientError{Message: "request failed", Cause: cause}

	assert.Contains(t, err.Error(), "transient extraction error")
	assert.Contains(t, err.Error(), "request failed")
	assert.True(t, errors.Is(err, cause))
}

func TestPermanentError_Format(t *testing.T) {
	err := &PermanentError{Message: "corrupt document"}

	assert.Contains(t, err.Error(), "permanent extraction error")
	assert.Contains(t, err.Error(), "corrupt document")
	assert.Nil(t, errors.Unwrap(err))
}

func TestIsTransient_WrappedError(t *testing.T) {
	inner := &TransientError{Message: "rate limited"}
	wrapped := fmt.Errorf("extraction failed after 3 attempts: %w", inner)

	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsPermanent(wrapped))
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, classify(nil))
}

func TestClassify_ContextCanceledPassesThrough(t *testing.T) {
	err := classify(context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
}

func TestClassify_DeadlineExceededIsTransient(t *testing.T) {
	err := classify(fmt.Errorf("rpc: %w", context.DeadlineExceeded))
	assert.True(t, IsTransient(err))
}

func TestClassify_AlreadyClassifiedPassesThrough(t *testing.T) {
	pe := &PermanentError{Message: "unsupported input"}
	assert.Equal(t, error(pe), classify(pe))

	te := &TransientError{Message: "backend unavailable"}
	assert.Equal(t, error(te), classify(te))
}

func TestClassify_GoogleAPIStatus(t *testing.T) {
	cases := []struct {
		code      int
		permanent bool
	}{
		{400, true},
		{401, true},
		{403, true},
		{413, true},
		{429, false},
		{500, false},
		{503, false},
	}

	for _, tc := range cases {
		err := classify(&googleapi.Error{Code: tc.code, Message: "test"})
		if tc.permanent {
			assert.True(t, IsPermanent(err), "HTTP %d should be permanent", tc.code)
		} else {
			assert.True(t, IsTransient(err), "HTTP %d should be transient", tc.code)
		}
	}
}

func TestClassify_GRPCStatus(t *testing.T) {
	cases := []struct {
		code      codes.Code
		permanent bool
	}{
		{codes.InvalidArgument, true},
		{codes.PermissionDenied, true},
		{codes.Unauthenticated, true},
		{codes.Unavailable, false},
		{codes.ResourceExhausted, false},
		{codes.Internal, false},
	}

	for _, tc := range cases {
		err := classify(status.Error(tc.code, "test"))
		if tc.permanent {
			assert.True(t, IsPermanent(err), "code %s should be permanent", tc.code)
		} else {
			assert.True(t, IsTransient(err), "code %s should be transient", tc.code)
		}
	}
}

func TestClassify_UnknownErrorDefaultsTransient(t *testing.T) {
	err := classify(errors.New("something odd"))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestIsPermanentHTTPStatus(t *testing.T) {
	assert.True(t, IsPermanentHTTPStatus(404))
	assert.True(t, IsPermanentHTTPStatus(410))
	assert.True(t, IsPermanentHTTPStatus(451))
	assert.False(t, IsPermanentHTTPStatus(429))
	assert.False(t, IsPermanentHTTPStatus(500))
	assert.False(t, IsPermanentHTTPStatus(200))
}
