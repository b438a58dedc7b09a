package services

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable classification attached to every failure that
// crosses a component boundary. Callers branch on the code and the
// Retryable flag, never on transport status codes.
type ErrorCode string

const (
	ErrCodeTimeout     ErrorCode = "TIMEOUT"
	ErrCodeNetwork     ErrorCode = "NETWORK_ERROR"
	ErrCodeUpstream4xx ErrorCode = "UPSTREAM_4XX"
	ErrCodeUpstream5xx ErrorCode = "UPSTREAM_5XX"
	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeNoProviders ErrorCode = "NO_PROVIDERS_AVAILABLE"
	ErrCodeUnknown     ErrorCode = "UNKNOWN"
)

// DetailProviderErrors keys the per-provider error map carried by a
// NO_PROVIDERS_AVAILABLE error.
const DetailProviderErrors = "provider_errors"

// RetryableCode reports whether a code is retryable by default.
// UPSTREAM_4XX and VALIDATION_ERROR are never retryable.
func RetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeTimeout, ErrCodeNetwork, ErrCodeUpstream5xx:
		return true
	}
	return false
}

// DomainError is a structured error with a stable code, a user-safe
// message and a retryable hint. The wrapped cause carries technical
// detail and is routed to logs only, never into API responses.
type DomainError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Err       error
	Details   map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error with the code's default retryability
func NewDomainError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Retryable: RetryableCode(code),
		Err:       err,
		Details:   make(map[string]interface{}),
	}
}

// NewTimeoutError creates a TIMEOUT error (retryable)
func NewTimeoutError(message string, err error) *DomainError {
	return NewDomainError(ErrCodeTimeout, message, err)
}

// NewNetworkError creates a NETWORK_ERROR (retryable)
func NewNetworkError(message string, err error) *DomainError {
	return NewDomainError(ErrCodeNetwork, message, err)
}

// NewUpstream4xxError creates an UPSTREAM_4XX error (never retryable)
func NewUpstream4xxError(message string, err error) *DomainError {
	return NewDomainError(ErrCodeUpstream4xx, message, err)
}

// NewUpstream5xxError creates an UPSTREAM_5XX error (retryable)
func NewUpstream5xxError(message string, err error) *DomainError {
	return NewDomainError(ErrCodeUpstream5xx, message, err)
}

// NewValidationError creates a VALIDATION_ERROR (never retryable)
func NewValidationError(message string, err error) *DomainError {
	return NewDomainError(ErrCodeValidation, message, err)
}

// NewUnknownError creates an UNKNOWN error (not retryable, investigate)
func NewUnknownError(message string, err error) *DomainError {
	return NewDomainError(ErrCodeUnknown, message, err)
}

// NewNoProvidersError creates the terminal aggregate error returned when
// no provider produced a usable quote. providerErrors maps every attempted
// provider ID to its classified error code.
func NewNoProvidersError(providerErrors map[string]string) *DomainError {
	e := NewDomainError(ErrCodeNoProviders, "no fulfillment providers available for this request", nil)
	e.Retryable = false
	return e.WithDetail(DetailProviderErrors, providerErrors)
}

// Domain error variables

var (
	ErrDecisionNotFound      = NewDomainError(ErrCodeValidation, "confirmation token does not match a known routing decision", nil)
	ErrDecisionExpired       = NewDomainError(ErrCodeValidation, "routing decision has expired", nil)
	ErrDecisionConsumed      = NewDomainError(ErrCodeValidation, "confirmation token has already been used", nil)
	ErrInvalidToken          = NewDomainError(ErrCodeValidation, "confirmation token is invalid", nil)
	ErrOrderNotConfirmed     = NewDomainError(ErrCodeValidation, "no confirmed order exists for this token", nil)
	ErrOrderAlreadyCancelled = NewDomainError(ErrCodeValidation, "order has already been cancelled", nil)
)

// Error classification helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	return CodeOf(err) == ErrCodeTimeout
}

// IsNoProvidersError checks if an error is the aggregate no-providers error
func IsNoProvidersError(err error) bool {
	return CodeOf(err) == ErrCodeNoProviders
}

// IsRetryable reports the retryable flag of a classified error.
// Unclassified errors are not retryable.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// CodeOf returns the ErrorCode of a classified error, or UNKNOWN otherwise
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeUnknown
}

// MessageOf returns the user-safe message of a classified error, or a
// generic message for unclassified errors.
func MessageOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "an unexpected error occurred"
}

// ProviderErrorsOf extracts the per-provider error map from a
// NO_PROVIDERS_AVAILABLE error, or nil for any other error.
func ProviderErrorsOf(err error) map[string]string {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != ErrCodeNoProviders {
		return nil
	}
	pe, _ := domainErr.Details[DetailProviderErrors].(map[string]string)
	return pe
}

// AsDomainError returns the DomainError inside err, classifying
// unrecognized errors as UNKNOWN so callers always see a uniform shape.
func AsDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewUnknownError("an unexpected error occurred", err)
}

// WrapError wraps an error with a classification and context message
func WrapError(code ErrorCode, message string, err error) error {
	return NewDomainError(code, message, err)
}
