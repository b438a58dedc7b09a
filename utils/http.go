package utils

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape for every API endpoint. Exactly
// one of Data and Error is populated.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries a classified failure in API responses. Code and
// Retryable mirror the domain error taxonomy; Message is user-safe and
// never exposes upstream payloads. ProviderErrors is present only on
// NO_PROVIDERS_AVAILABLE responses.
type ErrorBody struct {
	Code           string            `json:"code"`
	Retryable      bool              `json:"retryable"`
	Message        string            `json:"message"`
	ProviderErrors map[string]string `json:"provider_errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 success envelope around data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// WriteCreated writes a 201 success envelope around data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteFailure writes an error envelope with the given status
func WriteFailure(w http.ResponseWriter, status int, body *ErrorBody) error {
	return WriteJSON(w, status, Envelope{Success: false, Error: body})
}

// WriteBadRequest writes a 400 validation failure, used for malformed
// request bodies before a typed request exists.
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteFailure(w, http.StatusBadRequest, &ErrorBody{
		Code:      "VALIDATION_ERROR",
		Retryable: false,
		Message:   message,
	})
}

// WriteNotFound writes a 404 response for unknown routes
func WriteNotFound(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "resource not found"
	}
	return WriteFailure(w, http.StatusNotFound, &ErrorBody{
		Code:      "VALIDATION_ERROR",
		Retryable: false,
		Message:   message,
	})
}

// WriteInternalServerError writes a 500 response with a generic message
func WriteInternalServerError(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "an unexpected error occurred"
	}
	return WriteFailure(w, http.StatusInternalServerError, &ErrorBody{
		Code:      "UNKNOWN",
		Retryable: false,
		Message:   message,
	})
}
