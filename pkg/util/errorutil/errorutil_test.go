package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func TestToDomainErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{domain.ErrDuplicateUsername, "DUPLICATE_USERNAME", http.StatusConflict},
		{domain.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{domain.ErrAccessDenied, "ACCESS_DENIED", http.StatusForbidden},
		{domain.ErrNotActive, "NOT_ACTIVE", http.StatusForbidden},
		{domain.ErrDisabledUser, "DISABLED_USER", http.StatusForbidden},
		{domain.ErrIO, "STORAGE_UNAVAILABLE", http.StatusServiceUnavailable},
		{errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			mapped := ToDomainError(tt.err)
			require.NotNil(t, mapped)
			assert.Equal(t, tt.code, mapped.Code)
			assert.Equal(t, tt.status, mapped.HTTPStatus)
		})
	}
}

func TestToDomainErrorUnwrapsWrappedSentinels(t *testing.T) {
	wrapped := fmt.Errorf("%w: connection refused", domain.ErrIO)
	mapped := ToDomainError(wrapped)
	assert.Equal(t, "STORAGE_UNAVAILABLE", mapped.Code)
}

func TestToDomainErrorPassesThroughDomainError(t *testing.T) {
	original := NewDomainError("CUSTOM", "custom", http.StatusTeapot, nil)
	assert.Same(t, original, ToDomainError(original))
}

func TestToDomainErrorMapsFiberError(t *testing.T) {
	mapped := ToDomainError(fiber.NewError(http.StatusBadRequest, "invalid payload"))
	assert.Equal(t, http.StatusBadRequest, mapped.HTTPStatus)
	assert.Equal(t, "invalid payload", mapped.Message)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
