package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
)

// DomainError standardizes application errors at the HTTP boundary.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts an error into a DomainError, mapping the auth
// taxonomy to HTTP statuses.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       http.StatusText(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
			Err:        err,
		}
	}

	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return NewDomainError("DUPLICATE_USERNAME", domain.ErrDuplicateUsername.Error(), http.StatusConflict, nil)
	case errors.Is(err, domain.ErrNotFound):
		return NewDomainError("NOT_FOUND", domain.ErrNotFound.Error(), http.StatusNotFound, nil)
	case errors.Is(err, domain.ErrAccessDenied):
		return NewDomainError("ACCESS_DENIED", domain.ErrAccessDenied.Error(), http.StatusForbidden, nil)
	case errors.Is(err, domain.ErrNotActive):
		return NewDomainError("NOT_ACTIVE", domain.ErrNotActive.Error(), http.StatusForbidden, nil)
	case errors.Is(err, domain.ErrDisabledUser):
		return NewDomainError("DISABLED_USER", domain.ErrDisabledUser.Error(), http.StatusForbidden, nil)
	case errors.Is(err, domain.ErrIO):
		return &DomainError{
			Code:       "STORAGE_UNAVAILABLE",
			Message:    domain.ErrIO.Error(),
			HTTPStatus: http.StatusServiceUnavailable,
			Err:        err,
		}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
