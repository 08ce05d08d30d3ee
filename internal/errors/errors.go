package errors

import (
	"errors"
	"net/http"
)

// Kind classifies domain errors for the HTTP boundary.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindDuplicate       Kind = "duplicate"
	KindAuth            Kind = "auth"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
)

// Error is a domain error carrying a client-safe message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validation returns an error for missing or malformed input.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Duplicate returns an error for uniqueness violations.
func Duplicate(msg string) error {
	return &Error{Kind: KindDuplicate, Message: msg}
}

// Auth returns an error for rejected credentials or refresh tokens.
func Auth(msg string) error {
	return &Error{Kind: KindAuth, Message: msg}
}

// Unauthenticated returns an error for missing or invalid access tokens.
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden returns an error for records the caller may see but not change.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound returns an error for absent records.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf returns the kind of a domain error anywhere in err's chain, or "" if none.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsDuplicate reports whether err is a duplicate error.
func IsDuplicate(err error) bool { return KindOf(err) == KindDuplicate }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsForbidden reports whether err is a forbidden error.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsAuth reports whether err is a credential error.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// Is is errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
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
		Message: e.Message,
		Code:    e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything that is not a domain
// error becomes a generic 500 so internal details never reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return NewHTTPError(http.StatusInternalServerError, "Server error", "INTERNAL_ERROR")
	}
	switch domainErr.Kind {
	case KindValidation:
		return NewHTTPError(http.StatusBadRequest, domainErr.Message, "VALIDATION_ERROR")
	case KindDuplicate:
		return NewHTTPError(http.StatusBadRequest, domainErr.Message, "DUPLICATE")
	case KindAuth:
		return NewHTTPError(http.StatusBadRequest, domainErr.Message, "INVALID_CREDENTIALS")
	case KindUnauthenticated:
		return NewHTTPError(http.StatusUnauthorized, domainErr.Message, "UNAUTHENTICATED")
	case KindForbidden:
		return NewHTTPError(http.StatusForbidden, domainErr.Message, "FORBIDDEN")
	case KindNotFound:
		return NewHTTPError(http.StatusNotFound, domainErr.Message, "NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "Server error", "INTERNAL_ERROR")
	}
}
