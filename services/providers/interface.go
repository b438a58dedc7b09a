package providers

import (
	"context"

	"github.com/grocerlink/commerce-router/models"
)

// Adapter is the unified contract every fulfillment provider integration
// must implement. Concrete adapters own their vendor wire formats; callers
// only ever see this interface. Adapters must honor ctx cancellation and
// surface failures as *ProviderError so they can be classified.
type Adapter interface {
	// ID returns the provider ID the adapter serves (e.g., "freshmart")
	ID() string

	// GetQuote prices a cart for delivery to the given address.
	// Idempotent; safe to retry.
	GetQuote(ctx context.Context, items []models.CartItem, address models.Address) (*models.Quote, error)

	// ConfirmOrder places the order with the provider. Not idempotent;
	// never retried by callers.
	ConfirmOrder(ctx context.Context, req *ConfirmRequest) (*Confirmation, error)

	// CancelOrder cancels a previously confirmed order by the provider's
	// own order reference.
	CancelOrder(ctx context.Context, providerOrderID string) error
}

// ConfirmRequest carries everything a provider needs to place an order
type ConfirmRequest struct {
	// OrderID is our internal order identifier, passed for idempotency keys
	OrderID string `json:"order_id"`

	// Items is the cart as quoted
	Items []models.CartItem `json:"items"`

	// Address is the delivery address
	Address models.Address `json:"address"`

	// PaymentToken is an opaque payment method reference. Never logged.
	PaymentToken string `json:"-"`

	// TotalCents is the quoted total the order was accepted at
	TotalCents int64 `json:"total_cents"`
}

// Confirmation is a provider's acknowledgement of a placed order
type Confirmation struct {
	// ProviderOrderID is the provider's own reference for the order
	ProviderOrderID string `json:"provider_order_id"`

	// Status is the provider-reported order status
	Status string `json:"status"`

	// EstimatedDeliveryMinutes as committed at confirmation time
	EstimatedDeliveryMinutes int `json:"estimated_delivery_minutes"`
}

// ProviderError represents an error from a provider adapter
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the provider-reported error code (e.g., "PAYMENT_DECLINED")
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates if the request can be retried
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is a retryable provider error
func IsRetryable(err error) bool {
	if provErr, ok := err.(*ProviderError); ok {
		return provErr.Retryable
	}
	return false
}
