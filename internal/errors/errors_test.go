package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", Validation("amount must be positive"), http.StatusBadRequest, "VALIDATION_ERROR", "amount must be positive"},
		{"duplicate", Duplicate("Category already exists"), http.StatusBadRequest, "DUPLICATE", "Category already exists"},
		{"auth", Auth("Invalid credentials"), http.StatusBadRequest, "INVALID_CREDENTIALS", "Invalid credentials"},
		{"unauthenticated", Unauthenticated("Not authenticated"), http.StatusUnauthorized, "UNAUTHENTICATED", "Not authenticated"},
		{"forbidden", Forbidden("Default categories cannot be modified"), http.StatusForbidden, "FORBIDDEN", "Default categories cannot be modified"},
		{"not found", NotFound("Expense not found"), http.StatusNotFound, "NOT_FOUND", "Expense not found"},
		{"wrapped", fmt.Errorf("update expense: %w", NotFound("Expense not found")), http.StatusNotFound, "NOT_FOUND", "Expense not found"},
		{"unknown error is not leaked", errors.New("dial tcp 10.0.0.1:3306: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR", "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.Equal(t, tt.wantMsg, httpErr.ToErrorResponse().Message)
		})
	}
}

func TestKindPredicates(t *testing.T) {
	wrapped := fmt.Errorf("create category: %w", Duplicate("Category already exists"))

	assert.True(t, IsDuplicate(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsAuth(Auth("x")))
	assert.True(t, IsForbidden(fmt.Errorf("delete category: %w", Forbidden("x"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
