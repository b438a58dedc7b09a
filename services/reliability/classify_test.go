package reliability

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerlink/commerce-router/services"
	"github.com/grocerlink/commerce-router/services/providers"
)

// fakeNetError implements net.Error for classification tests
type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      services.ErrorCode
		retryable bool
	}{
		{
			name:      "deadline exceeded is timeout",
			err:       context.DeadlineExceeded,
			code:      services.ErrCodeTimeout,
			retryable: true,
		},
		{
			name:      "cancellation is timeout",
			err:       context.Canceled,
			code:      services.ErrCodeTimeout,
			retryable: true,
		},
		{
			name:      "provider 503 is upstream 5xx",
			err:       providers.NewProviderError("freshmart", "UNAVAILABLE", "down", 503, true, nil),
			code:      services.ErrCodeUpstream5xx,
			retryable: true,
		},
		{
			name:      "provider 402 is upstream 4xx",
			err:       providers.NewProviderError("freshmart", "PAYMENT_DECLINED", "declined", 402, false, nil),
			code:      services.ErrCodeUpstream4xx,
			retryable: false,
		},
		{
			name:      "provider 429 is still upstream 4xx and never retried",
			err:       providers.NewProviderError("freshmart", "RATE_LIMITED", "slow down", 429, true, nil),
			code:      services.ErrCodeUpstream4xx,
			retryable: false,
		},
		{
			name:      "provider retryable without status is network",
			err:       providers.NewProviderError("freshmart", "CONN", "conn dropped", 0, true, errors.New("broken pipe")),
			code:      services.ErrCodeNetwork,
			retryable: true,
		},
		{
			name:      "net timeout is timeout",
			err:       &fakeNetError{timeout: true},
			code:      services.ErrCodeTimeout,
			retryable: true,
		},
		{
			name:      "net non-timeout is network error",
			err:       &fakeNetError{timeout: false},
			code:      services.ErrCodeNetwork,
			retryable: true,
		},
		{
			name:      "connection refused is network error",
			err:       &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			code:      services.ErrCodeNetwork,
			retryable: true,
		},
		{
			name:      "opaque error is unknown",
			err:       errors.New("mystery"),
			code:      services.ErrCodeUnknown,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.code, classified.Code)
			assert.Equal(t, tt.retryable, classified.Retryable)
			assert.NotEmpty(t, classified.Message)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassifyIdempotent(t *testing.T) {
	original := services.NewValidationError("bad token", nil)

	classified := Classify(original)
	assert.Same(t, original, classified)

	// classification survives wrapping too
	wrapped := services.WrapError(services.ErrCodeValidation, "outer context", original)
	assert.Equal(t, services.ErrCodeValidation, Classify(wrapped).Code)
}

func TestBackoffDelayDoubles(t *testing.T) {
	base := 400 * time.Millisecond
	assert.Equal(t, 400*time.Millisecond, backoffDelay(base, 1))
	assert.Equal(t, 800*time.Millisecond, backoffDelay(base, 2))
	assert.Equal(t, 1600*time.Millisecond, backoffDelay(base, 3))
}
