package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Sentinel errors shared by the catalog layers.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrIndexing     = errors.New("search index write failed")
	ErrQuery        = errors.New("search query failed")
	ErrInternal     = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error for a resource identified by a numeric id.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, strconv.FormatInt(id, 10)),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// IndexingFailed creates a 502 error for a canonical write whose search
// document could not be written. The canonical write has already committed.
func IndexingFailed(id int64, cause error) *AppError {
	return &AppError{
		Code:    "INDEXING_FAILED",
		Message: fmt.Sprintf("game %d was saved but could not be indexed", id),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrIndexing, cause),
	}
}

// QueryFailed creates a 500 error for a failed search or aggregation query.
func QueryFailed(op string, cause error) *AppError {
	return &AppError{
		Code:    "QUERY_FAILED",
		Message: fmt.Sprintf("%s query failed", op),
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrQuery, cause),
	}
}

// Internal creates a 500 error. The cause stays in the chain for logging and
// is never shown to clients.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrInternal, err),
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexing):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
