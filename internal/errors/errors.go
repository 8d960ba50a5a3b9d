package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a user record is not found.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the username already exists.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidCredentials is returned when authentication fails. It is
	// deliberately generic: callers cannot tell an unknown user from a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRecord is returned when a stored credential record is not in
	// the required form (e.g. salt missing where one is required).
	ErrInvalidRecord = errors.New("invalid user record")
	// ErrSignatureInvalid is returned when webhook signature verification fails.
	ErrSignatureInvalid = errors.New("webhook signature verification failed")
	// ErrEventUnparsable is returned when a webhook payload cannot be decoded
	// into an event.
	ErrEventUnparsable = errors.New("event payload cannot be parsed")
	// ErrUnresolvableUser is returned when a provider event cannot be bound
	// to any known user.
	ErrUnresolvableUser = errors.New("event cannot be resolved to a user")
	// ErrPlanUnknown is returned when a reported plan is not in the known
	// configuration.
	ErrPlanUnknown = errors.New("unknown subscription plan")
	// ErrProviderLookupFailed is returned when a payment provider lookup
	// fails or times out. The record is left unchanged.
	ErrProviderLookupFailed = errors.New("payment provider lookup failed")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusBadRequest, ErrUsernameTaken.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidRecord):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidRecord.Error(), "INVALID_RECORD")
	case errors.Is(err, ErrSignatureInvalid):
		return NewHTTPError(http.StatusBadRequest, ErrSignatureInvalid.Error(), "SIGNATURE_INVALID")
	case errors.Is(err, ErrEventUnparsable):
		return NewHTTPError(http.StatusBadRequest, ErrEventUnparsable.Error(), "EVENT_UNPARSABLE")
	case errors.Is(err, ErrPlanUnknown):
		return NewHTTPError(http.StatusBadRequest, ErrPlanUnknown.Error(), "PLAN_UNKNOWN")
	case errors.Is(err, ErrProviderLookupFailed):
		return NewHTTPError(http.StatusBadGateway, ErrProviderLookupFailed.Error(), "PROVIDER_LOOKUP_FAILED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
