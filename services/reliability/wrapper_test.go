package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/services"
	"github.com/grocerlink/commerce-router/services/providers"
)

// recordingSleep captures requested delays without actually sleeping
func recordingSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func upstream5xx() error {
	return providers.NewProviderError("freshmart", "INTERNAL", "provider exploded", 503, true, nil)
}

func TestCallSuccessFirstAttempt(t *testing.T) {
	logger := zap.NewNop()
	calls := 0

	value, err := Call(context.Background(), logger, "get_quote", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}, Options{Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, calls)
}

func TestCallRetriesExactlyNPlusOneAttempts(t *testing.T) {
	logger := zap.NewNop()

	for _, maxRetries := range []int{0, 1, 2, 3} {
		t.Run(fmt.Sprintf("maxRetries=%d", maxRetries), func(t *testing.T) {
			calls := 0
			var delays []time.Duration

			_, err := Call(context.Background(), logger, "get_quote", func(ctx context.Context) (int, error) {
				calls++
				return 0, upstream5xx()
			}, Options{
				Timeout:        time.Second,
				MaxRetries:     maxRetries,
				RetryableCodes: DefaultRetryableCodes(),
				BackoffBase:    400 * time.Millisecond,
				Sleep:          recordingSleep(&delays),
			})

			require.Error(t, err)
			assert.Equal(t, maxRetries+1, calls)
			assert.Equal(t, services.ErrCodeUpstream5xx, services.CodeOf(err))

			// delay before retry k must be base * 2^(k-1)
			require.Len(t, delays, maxRetries)
			for k, d := range delays {
				expected := 400 * time.Millisecond * time.Duration(1<<uint(k))
				assert.Equal(t, expected, d, "delay %d", k+1)
			}
		})
	}
}

func TestCallNeverRetries4xx(t *testing.T) {
	logger := zap.NewNop()
	calls := 0
	var delays []time.Duration

	_, err := Call(context.Background(), logger, "confirm_order", func(ctx context.Context) (int, error) {
		calls++
		return 0, providers.NewProviderError("freshmart", "PAYMENT_DECLINED", "payment declined", 402, false, nil)
	}, Options{
		Timeout: time.Second,
		// even with a generous retry budget and 4XX listed, no retry happens
		MaxRetries:     5,
		RetryableCodes: []services.ErrorCode{services.ErrCodeUpstream4xx, services.ErrCodeUpstream5xx},
		Sleep:          recordingSleep(&delays),
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
	assert.Equal(t, services.ErrCodeUpstream4xx, services.CodeOf(err))
	assert.False(t, services.IsRetryable(err))
}

func TestCallNeverRetriesValidation(t *testing.T) {
	logger := zap.NewNop()
	calls := 0

	_, err := Call(context.Background(), logger, "confirm_order", func(ctx context.Context) (int, error) {
		calls++
		return 0, services.NewValidationError("bad input", nil)
	}, Options{
		Timeout:        time.Second,
		MaxRetries:     3,
		RetryableCodes: []services.ErrorCode{services.ErrCodeValidation},
		Sleep:          recordingSleep(&[]time.Duration{}),
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, services.ErrCodeValidation, services.CodeOf(err))
}

func TestCallRetryOnlyForAllowedCodes(t *testing.T) {
	logger := zap.NewNop()
	calls := 0

	// 5XX is retryable by nature but absent from RetryableCodes
	_, err := Call(context.Background(), logger, "get_quote", func(ctx context.Context) (int, error) {
		calls++
		return 0, upstream5xx()
	}, Options{
		Timeout:        time.Second,
		MaxRetries:     2,
		RetryableCodes: []services.ErrorCode{services.ErrCodeTimeout},
		Sleep:          recordingSleep(&[]time.Duration{}),
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCallEnforcesPerAttemptTimeout(t *testing.T) {
	logger := zap.NewNop()

	start := time.Now()
	_, err := Call(context.Background(), logger, "get_quote", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, Options{Timeout: 30 * time.Millisecond})

	require.Error(t, err)
	assert.Equal(t, services.ErrCodeTimeout, services.CodeOf(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCallRecoversAfterTransientFailures(t *testing.T) {
	logger := zap.NewNop()
	calls := 0

	value, err := Call(context.Background(), logger, "get_quote", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", upstream5xx()
		}
		return "quote", nil
	}, Options{
		Timeout:        time.Second,
		MaxRetries:     2,
		RetryableCodes: DefaultRetryableCodes(),
		Sleep:          recordingSleep(&[]time.Duration{}),
	})

	require.NoError(t, err)
	assert.Equal(t, "quote", value)
	assert.Equal(t, 3, calls)
}

func TestCallStopsWhenParentCancelledDuringBackoff(t *testing.T) {
	logger := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Call(ctx, logger, "get_quote", func(ctx context.Context) (int, error) {
		calls++
		return 0, upstream5xx()
	}, Options{
		Timeout:        time.Second,
		MaxRetries:     5,
		RetryableCodes: DefaultRetryableCodes(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return context.Canceled
		},
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, services.ErrCodeTimeout, services.CodeOf(err))
}

func TestCallAlwaysReturnsDomainError(t *testing.T) {
	logger := zap.NewNop()

	_, err := Call(context.Background(), logger, "get_quote", func(ctx context.Context) (int, error) {
		return 0, errors.New("something totally opaque")
	}, Options{Timeout: time.Second})

	require.Error(t, err)
	var domainErr *services.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, services.ErrCodeUnknown, domainErr.Code)
	assert.False(t, domainErr.Retryable)
	assert.NotEmpty(t, domainErr.Message)
}
