package reliability

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/grocerlink/commerce-router/services"
	"github.com/grocerlink/commerce-router/services/providers"
)

// Classify maps an arbitrary operation error onto the stable error
// taxonomy. Already-classified errors pass through unchanged, so
// classification is idempotent across wrapper layers.
func Classify(err error) *services.DomainError {
	if err == nil {
		return nil
	}

	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return services.NewTimeoutError("the provider did not respond in time", err)
	}
	if errors.Is(err, context.Canceled) {
		return services.NewTimeoutError("the operation was cancelled", err)
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return classifyProviderError(provErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return services.NewTimeoutError("the provider did not respond in time", err)
		}
		return services.NewNetworkError("could not reach the provider", err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return services.NewNetworkError("could not reach the provider", err)
	}

	return services.NewUnknownError("the provider request failed unexpectedly", err)
}

// classifyProviderError maps an adapter error by its HTTP status class.
// Adapters that cannot supply a status fall back to their retryable hint.
func classifyProviderError(provErr *providers.ProviderError) *services.DomainError {
	message := provErr.Message
	if message == "" {
		message = "the provider rejected the request"
	}

	switch {
	case provErr.StatusCode >= 500:
		return services.NewUpstream5xxError(message, provErr)
	case provErr.StatusCode >= 400:
		return services.NewUpstream4xxError(message, provErr)
	case provErr.Retryable:
		return services.NewNetworkError(message, provErr)
	default:
		return services.NewUnknownError(message, provErr)
	}
}
