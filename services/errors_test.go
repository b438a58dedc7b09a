package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := NewTimeoutError("provider timed out", errors.New("context deadline exceeded"))
		assert.Equal(t, "TIMEOUT: provider timed out (context deadline exceeded)", err.Error())
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewValidationError("items are required", nil)
		assert.Equal(t, "VALIDATION_ERROR: items are required", err.Error())
	})
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("provider unreachable", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestDomainError_Is(t *testing.T) {
	t.Run("matches on code", func(t *testing.T) {
		err := NewValidationError("bad cart", nil)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("different code does not match", func(t *testing.T) {
		err := NewTimeoutError("slow provider", nil)
		assert.False(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("non-domain target does not match", func(t *testing.T) {
		err := NewTimeoutError("slow provider", nil)
		assert.False(t, errors.Is(err, errors.New("TIMEOUT")))
	})
}

func TestRetryableCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeTimeout, true},
		{ErrCodeNetwork, true},
		{ErrCodeUpstream5xx, true},
		{ErrCodeUpstream4xx, false},
		{ErrCodeValidation, false},
		{ErrCodeNoProviders, false},
		{ErrCodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, RetryableCode(tt.code))
		})
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name          string
		err           *DomainError
		wantCode      ErrorCode
		wantRetryable bool
	}{
		{"timeout", NewTimeoutError("m", cause), ErrCodeTimeout, true},
		{"network", NewNetworkError("m", cause), ErrCodeNetwork, true},
		{"upstream 4xx", NewUpstream4xxError("m", cause), ErrCodeUpstream4xx, false},
		{"upstream 5xx", NewUpstream5xxError("m", cause), ErrCodeUpstream5xx, true},
		{"validation", NewValidationError("m", cause), ErrCodeValidation, false},
		{"unknown", NewUnknownError("m", cause), ErrCodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantRetryable, tt.err.Retryable)
			assert.Equal(t, "m", tt.err.Message)
			assert.Equal(t, cause, tt.err.Err)
		})
	}
}

func TestNewNoProvidersError(t *testing.T) {
	providerErrors := map[string]string{
		"freshmart": "TIMEOUT",
		"quickbite": "UPSTREAM_5XX",
	}

	err := NewNoProvidersError(providerErrors)

	assert.Equal(t, ErrCodeNoProviders, err.Code)
	assert.False(t, err.Retryable)
	assert.Equal(t, providerErrors, err.Details[DetailProviderErrors])
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Code: ErrCodeValidation, Message: "bad request"}

	got := err.WithDetail("fields", []string{"items"}).WithDetail("count", 0)

	assert.Same(t, err, got)
	assert.Equal(t, []string{"items"}, err.Details["fields"])
	assert.Equal(t, 0, err.Details["count"])
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable domain error", NewTimeoutError("m", nil), true},
		{"non-retryable domain error", NewValidationError("m", nil), false},
		{"wrapped domain error", fmt.Errorf("gather: %w", NewNetworkError("m", nil)), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"domain error", NewUpstream5xxError("m", nil), ErrCodeUpstream5xx},
		{"wrapped domain error", fmt.Errorf("confirm: %w", NewTimeoutError("m", nil)), ErrCodeTimeout},
		{"plain error", errors.New("boom"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	t.Run("domain error message", func(t *testing.T) {
		err := NewValidationError("items are required", errors.New("internal detail"))
		assert.Equal(t, "items are required", MessageOf(err))
	})

	t.Run("plain error gets generic message", func(t *testing.T) {
		msg := MessageOf(errors.New("pq: connection reset"))
		assert.Equal(t, "an unexpected error occurred", msg)
		assert.NotContains(t, msg, "pq")
	})
}

func TestProviderErrorsOf(t *testing.T) {
	t.Run("no providers error carries the map", func(t *testing.T) {
		providerErrors := map[string]string{"freshmart": "NETWORK_ERROR"}
		err := NewNoProvidersError(providerErrors)

		assert.Equal(t, providerErrors, ProviderErrorsOf(err))
	})

	t.Run("other domain errors return nil", func(t *testing.T) {
		assert.Nil(t, ProviderErrorsOf(NewTimeoutError("m", nil)))
	})

	t.Run("plain errors return nil", func(t *testing.T) {
		assert.Nil(t, ProviderErrorsOf(errors.New("boom")))
	})
}

func TestAsDomainError(t *testing.T) {
	t.Run("passes through classified errors", func(t *testing.T) {
		err := NewUpstream4xxError("rejected", nil)
		assert.Same(t, err, AsDomainError(err))
	})

	t.Run("finds classified errors through wrapping", func(t *testing.T) {
		inner := NewTimeoutError("m", nil)
		got := AsDomainError(fmt.Errorf("route: %w", inner))
		assert.Same(t, inner, got)
	})

	t.Run("classifies everything else as unknown", func(t *testing.T) {
		cause := errors.New("boom")
		got := AsDomainError(cause)

		require.NotNil(t, got)
		assert.Equal(t, ErrCodeUnknown, got.Code)
		assert.False(t, got.Retryable)
		assert.Equal(t, cause, got.Err)
	})
}

func TestWrapError(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := WrapError(ErrCodeNetwork, "quote fetch failed", cause)

	assert.Equal(t, ErrCodeNetwork, CodeOf(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, cause))
}

func TestSentinels(t *testing.T) {
	sentinels := []*DomainError{
		ErrDecisionNotFound,
		ErrDecisionExpired,
		ErrDecisionConsumed,
		ErrInvalidToken,
		ErrOrderNotConfirmed,
		ErrOrderAlreadyCancelled,
	}

	for _, sentinel := range sentinels {
		t.Run(sentinel.Message, func(t *testing.T) {
			assert.Equal(t, ErrCodeValidation, sentinel.Code)
			assert.False(t, sentinel.Retryable)
			assert.True(t, IsValidationError(sentinel))
		})
	}
}

func TestClassificationPredicates(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("m", nil)))
	assert.False(t, IsValidationError(NewTimeoutError("m", nil)))

	assert.True(t, IsTimeoutError(NewTimeoutError("m", nil)))
	assert.False(t, IsTimeoutError(errors.New("timeout")))

	assert.True(t, IsNoProvidersError(NewNoProvidersError(nil)))
	assert.False(t, IsNoProvidersError(NewUpstream5xxError("m", nil)))
}
