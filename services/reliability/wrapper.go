package reliability

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/services"
)

const (
	// DefaultBackoffBase is the first retry delay; delay k is base * 2^(k-1)
	DefaultBackoffBase = 400 * time.Millisecond

	// DefaultTimeout bounds a single attempt when the caller supplies none
	DefaultTimeout = 5 * time.Second
)

// Operation is a cancellable unit of work executed under the wrapper
type Operation[T any] func(ctx context.Context) (T, error)

// SleepFunc waits for d or until ctx is done. Tests substitute a recorder.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options control one wrapped call
type Options struct {
	// Timeout is the hard per-attempt bound, enforced via context cancellation
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Writes and other non-idempotent operations must pass 0.
	MaxRetries int

	// RetryableCodes allows retry only for these classified codes.
	// UPSTREAM_4XX and VALIDATION_ERROR are never retried even if listed.
	RetryableCodes []services.ErrorCode

	// BackoffBase is the first retry delay (default 400ms)
	BackoffBase time.Duration

	// Sleep overrides the inter-attempt wait, for tests
	Sleep SleepFunc
}

// DefaultRetryableCodes are the transient classifications worth retrying
func DefaultRetryableCodes() []services.ErrorCode {
	return []services.ErrorCode{services.ErrCodeTimeout, services.ErrCodeNetwork, services.ErrCodeUpstream5xx}
}

// Call executes fn with a hard per-attempt timeout, classifies every
// failure, and retries transient errors with exponential backoff. A non-nil
// returned error is always a *services.DomainError, so callers see one
// uniform shape regardless of what the operation produced.
func Call[T any](ctx context.Context, logger *zap.Logger, op string, fn Operation[T], opts Options) (T, error) {
	var zero T

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	allowed := make(map[services.ErrorCode]bool, len(opts.RetryableCodes))
	for _, code := range opts.RetryableCodes {
		allowed[code] = true
	}

	attempts := opts.MaxRetries + 1
	var lastErr *services.DomainError

	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Debug("reliability.attempt",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Int64("timeout_ms", opts.Timeout.Milliseconds()),
		)

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		value, err := fn(attemptCtx)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			logger.Debug("reliability.attempt_success",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int64("elapsed_ms", elapsed.Milliseconds()),
			)
			return value, nil
		}

		classified := Classify(err)
		lastErr = classified

		if classified.Code == services.ErrCodeTimeout {
			logger.Warn("reliability.attempt_timeout",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int64("elapsed_ms", elapsed.Milliseconds()),
			)
		} else {
			logger.Warn("reliability.attempt_error",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.String("code", string(classified.Code)),
				zap.Bool("retryable", classified.Retryable),
				zap.Int64("elapsed_ms", elapsed.Milliseconds()),
				zap.Error(err),
			)
		}

		if !classified.Retryable || !allowed[classified.Code] {
			logger.Debug("reliability.terminal_error",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.String("code", string(classified.Code)),
			)
			return zero, classified
		}
		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return zero, classified
		}

		delay := backoffDelay(opts.BackoffBase, attempt)
		logger.Info("reliability.retry_scheduled",
			zap.String("op", op),
			zap.Int("next_attempt", attempt+1),
			zap.Int64("delay_ms", delay.Milliseconds()),
			zap.String("code", string(classified.Code)),
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, services.NewTimeoutError("operation cancelled while awaiting retry", err)
		}
	}

	logger.Warn("reliability.retries_exhausted",
		zap.String("op", op),
		zap.Int("attempts", attempts),
		zap.String("code", string(lastErr.Code)),
	)
	return zero, lastErr
}

// backoffDelay computes base * 2^(attempt-1) for the delay before attempt+1
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<uint(attempt-1))
}

// sleepContext waits for d, aborting early if ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
