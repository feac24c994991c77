// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors onto status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	"budget/internal/store"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
	value      any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to be encoded as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.value = v
	b.body = nil
	return b
}

// Body sets a raw body with its content type.
func (b *ResponseBuilder) Body(contentType string, content []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = content
	b.value = nil
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	body := b.body
	if b.value != nil {
		data, err := json.Marshal(b.value)
		if err != nil {
			slog.Error("Failed to encode response", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal error"}`))
			return
		}
		body = append(data, '\n')
		b.headers["Content-Type"] = "application/json"
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message, requestID string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(errorBody{Error: message, RequestID: requestID})
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed", "").
		Header("Allow", allowedMethods)
}

// StatusFor maps an error to its status code and the message shown to the
// client. Persistence failures get a generic message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrDuplicateAccountName):
		return http.StatusConflict, err.Error()
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrBackupUnsupported):
		return http.StatusNotImplemented, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// errorTypeFor classifies a mapped status for logging.
func errorTypeFor(status int) string {
	switch status {
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusBadRequest:
		return log.ErrorTypeBadRequest
	case http.StatusNotImplemented:
		return log.ErrorTypeConfiguration
	default:
		return log.ErrorTypeInternal
	}
}

// writeError logs the failure and writes the mapped error response. Client
// errors are logged at debug; server failures at error.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := StatusFor(err)
	requestID := trace.GetRequestID(r.Context())
	fields := log.NewFields().
		WithErrorType(errorTypeFor(status)).
		WithRequestID(requestID)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		log.LogError(r.Context(), "Request failed", err, op, fields)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			fields.WithError(err).WithOperation(op).ToSlice()...)
	}
	ErrorResponse(status, message, requestID).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewResponse().Status(status).JSON(v).Write(w)
}
