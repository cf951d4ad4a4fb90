package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jerry-enebeli/notebox/internal/apierror"
	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	details := "sheets quota exhausted"
	apiErr := apierror.NewAPIError(apierror.ErrStorage, "failed to store entry", details)

	assert.Equal(t, apierror.ErrStorage, apiErr.Code)
	assert.Equal(t, "failed to store entry", apiErr.Message)
	assert.Equal(t, details, apiErr.Details)
	assert.Equal(t, "STORAGE_ERROR: failed to store entry", apiErr.Error())
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("row not found")
	apiErr := apierror.NewAPIError(apierror.ErrNotFound, "entry not found", cause)
	assert.ErrorIs(t, apiErr, cause)

	assert.Nil(t, apierror.NewAPIError(apierror.ErrNotFound, "entry not found", nil).Unwrap())
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "NotFound Error",
			err:      apierror.NewAPIError(apierror.ErrNotFound, "Resource not found", nil),
			expected: http.StatusNotFound,
		},
		{
			name:     "Conflict Error",
			err:      apierror.NewAPIError(apierror.ErrConflict, "Conflict occurred", nil),
			expected: http.StatusConflict,
		},
		{
			name:     "InvalidInput Error",
			err:      apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid input", nil),
			expected: http.StatusBadRequest,
		},
		{
			name:     "Unauthorized Error",
			err:      apierror.NewAPIError(apierror.ErrUnauthorized, "unauthorized", nil),
			expected: http.StatusUnauthorized,
		},
		{
			name:     "Storage Error",
			err:      apierror.NewAPIError(apierror.ErrStorage, "storage failed", nil),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "Wrapped Error",
			err:      fmt.Errorf("patch: %w", apierror.NewAPIError(apierror.ErrNotFound, "entry not found", nil)),
			expected: http.StatusNotFound,
		},
		{
			name:     "Unknown Error",
			err:      errors.New("Unknown error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusCode := apierror.MapErrorToHTTPStatus(tt.err)
			assert.Equal(t, tt.expected, statusCode)
		})
	}
}
