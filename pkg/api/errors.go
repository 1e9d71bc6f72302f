package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a request error.
type ErrorType string

const (
	ErrorTypeNetwork         ErrorType = "network_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeDecode          ErrorType = "decode_error"
)

// RequestError is a transport-level failure: the request could not be sent,
// the service returned a non-2xx status, or the body could not be decoded.
type RequestError struct {
	Type       ErrorType `json:"type"`
	StatusCode int       `json:"status_code,omitempty"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewNetworkError creates a RequestError for connection-level failures.
func NewNetworkError(message string) *RequestError {
	return &RequestError{Type: ErrorTypeNetwork, Message: message}
}

// NewInvalidRequestError creates a RequestError for a rejected request.
func NewInvalidRequestError(status int, message string) *RequestError {
	return &RequestError{Type: ErrorTypeInvalidRequest, StatusCode: status, Message: message}
}

// NewUnauthorizedError creates a RequestError for missing or rejected credentials.
func NewUnauthorizedError(status int, message string) *RequestError {
	return &RequestError{Type: ErrorTypeUnauthorized, StatusCode: status, Message: message}
}

// NewNotFoundError creates a RequestError for unknown endpoints or models.
func NewNotFoundError(message string) *RequestError {
	return &RequestError{Type: ErrorTypeNotFound, StatusCode: 404, Message: message}
}

// NewTooManyRequestsError creates a RequestError for rate limiting.
func NewTooManyRequestsError(message string) *RequestError {
	return &RequestError{Type: ErrorTypeTooManyRequests, StatusCode: 429, Message: message}
}

// NewServerError creates a RequestError for service-side failures.
func NewServerError(status int, message string) *RequestError {
	return &RequestError{Type: ErrorTypeServerError, StatusCode: status, Message: message}
}

// NewDecodeError creates a RequestError for bodies that are not valid JSON.
func NewDecodeError(message string) *RequestError {
	return &RequestError{Type: ErrorTypeDecode, Message: message}
}

// ErrUnexpectedResponse matches every ShapeError via errors.Is.
var ErrUnexpectedResponse = errors.New("unexpected response shape")

// ShapeError reports a successful response whose payload the client does
// not understand. It is not meant to be recovered from programmatically.
type ShapeError struct {
	Message string
}

// NewShapeError creates a ShapeError with the given message.
func NewShapeError(message string) *ShapeError {
	return &ShapeError{Message: message}
}

// Error returns the bare message.
func (e *ShapeError) Error() string {
	return e.Message
}

// Is reports whether target is ErrUnexpectedResponse.
func (e *ShapeError) Is(target error) bool {
	return target == ErrUnexpectedResponse
}

// AsRequestError extracts a *RequestError from err, if it contains one.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
