package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vsinha/stockroom/pkg/application/services"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/infrastructure/auth"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps a service error onto an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrConflict),
		errors.Is(err, entities.ErrInsufficientStock),
		errors.Is(err, entities.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRevoked):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// codeFor gives clients a stable machine readable reason
func codeFor(err error, statusCode int) string {
	switch {
	case errors.Is(err, entities.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, entities.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "token_revoked"
	}
	return errorCodeFromStatus(statusCode)
}

// Error renders err with the status StatusFor picks. Internal errors are not echoed.
func Error(w http.ResponseWriter, err error) {
	statusCode := StatusFor(err)
	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		message = "An unexpected error occurred"
	}
	RenderErrorWithCode(w, statusCode, message, codeFor(err, statusCode))
}

// RenderErrorWithCode renders an error with a specific error code
func RenderErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	if code == "" {
		code = errorCodeFromStatus(statusCode)
	}
	JSON(w, statusCode, &ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	})
}

// BadRequest renders a 400 for requests that could not be parsed
func BadRequest(w http.ResponseWriter, format string, args ...interface{}) {
	RenderErrorWithCode(w, http.StatusBadRequest, fmt.Sprintf(format, args...), "")
}

// Unauthorized renders a 401
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RenderErrorWithCode(w, http.StatusUnauthorized, message, "")
}

func errorCodeFromStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return "error"
	}
}
