// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping from
// error kinds to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload != nil {
		_ = json.NewEncoder(w).Encode(b.payload)
	}
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) {
	NewJSONResponse().Body(v).Write(w)
}

// okBody is the acknowledgement the web client expects from mutations.
type okBody struct {
	OK bool   `json:"ok"`
	ID *int64 `json:"id,omitempty"`
}

// Ack writes {"ok":true}.
func Ack(w http.ResponseWriter) {
	OK(w, okBody{OK: true})
}

// Created writes {"ok":true,"id":id} with status 201.
func Created(w http.ResponseWriter, id int64) {
	NewJSONResponse().Status(http.StatusCreated).Body(okBody{OK: true, ID: &id}).Write(w)
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(map[string]string{"error": message})
}

// StatusForError maps an error kind to its HTTP status.
func StatusForError(err error) int {
	switch core.Kind(err) {
	case core.ErrValidation:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	switch core.Kind(err) {
	case core.ErrValidation:
		return log.ErrorTypeValidation
	case core.ErrNotFound:
		return log.ErrorTypeNotFound
	case core.ErrConflict:
		return log.ErrorTypeConflict
	case core.ErrStorage:
		return log.ErrorTypeDatabase
	default:
		return log.ErrorTypeInternal
	}
}

// WriteError logs err against the request and writes the mapped response.
// Internal failures are reported without their details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	logger := log.FromContext(r.Context())

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldErrorType, errorType(err))
		msg = "internal error"
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldError, err,
			log.FieldErrorType, errorType(err))
	}
	if errors.Is(err, core.ErrCategoryInUse) {
		msg = "Category in use. Delete related transactions first."
	}

	ErrorResponse(status, msg).Write(w)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").
		Header("Allow", allowedMethods)
}
