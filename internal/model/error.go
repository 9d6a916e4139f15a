package model

import "errors"

// ErrorKind classifies a failed API call. Presentation upstream is a
// single message either way, but the kinds stay distinct so callers
// and tests can tell an auth failure from a missing listing.
type ErrorKind string

const (
	ErrKindNetwork    ErrorKind = "NETWORK"
	ErrKindAuth       ErrorKind = "AUTH"
	ErrKindValidation ErrorKind = "VALIDATION"
	ErrKindNotFound   ErrorKind = "NOT_FOUND"
	ErrKindUnexpected ErrorKind = "UNEXPECTED"
)

// APIError carries the backend's message (when one was supplied)
// together with the classification and the HTTP status.
type APIError struct {
	Kind    ErrorKind
	Status  int // zero when no response reached us
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a classified API error.
func NewAPIError(kind ErrorKind, status int, message string) *APIError {
	return &APIError{
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

func isKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsNetworkError reports whether no response reached the server.
func IsNetworkError(err error) bool { return isKind(err, ErrKindNetwork) }

// IsAuthError reports whether the call was rejected as unauthenticated.
func IsAuthError(err error) bool { return isKind(err, ErrKindAuth) }

// IsValidationError reports whether the payload or response shape was rejected.
func IsValidationError(err error) bool { return isKind(err, ErrKindValidation) }

// IsNotFoundError reports whether the target listing does not exist or
// belongs to someone else.
func IsNotFoundError(err error) bool { return isKind(err, ErrKindNotFound) }

// ErrorResponse is the backend's error envelope. Both shapes have been
// observed in the wild, so both keys are tolerated.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
