package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/services"
	"github.com/grocerlink/commerce-router/utils"
)

// HandleServiceError maps a classified domain error onto the HTTP surface.
// The envelope carries the full taxonomy; the status only mirrors the error
// class so generic HTTP tooling behaves sensibly. Callers branch on the
// envelope, never on the status.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	domainErr := services.AsDomainError(err)
	body := &utils.ErrorBody{
		Code:           string(domainErr.Code),
		Retryable:      domainErr.Retryable,
		Message:        domainErr.Message,
		ProviderErrors: services.ProviderErrorsOf(domainErr),
	}

	status := statusFor(domainErr.Code)
	if status == http.StatusInternalServerError {
		logger.Error("unclassified service error", zap.Error(err))
	} else {
		logger.Debug("handled service error",
			zap.String("code", string(domainErr.Code)),
			zap.Bool("retryable", domainErr.Retryable),
			zap.Int("status", status))
	}

	if writeErr := utils.WriteFailure(w, status, body); writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// statusFor maps an error code onto its HTTP status class. Upstream
// failures of any flavor surface as 502: the provider failed, not us.
func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrCodeValidation:
		return http.StatusBadRequest
	case services.ErrCodeTimeout:
		return http.StatusRequestTimeout
	case services.ErrCodeNetwork, services.ErrCodeUpstream4xx, services.ErrCodeUpstream5xx:
		return http.StatusBadGateway
	case services.ErrCodeNoProviders:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
