package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusBadRequest},
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeInvalidCredential, http.StatusBadRequest},
		{ErrCodeOperationFailed, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := OperationFailed(cause, "Could not delete user")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsCode(err, ErrCodeOperationFailed))
	assert.Contains(t, err.Error(), "connection reset")

	wrapped := fmt.Errorf("cascade: %w", err)
	assert.Equal(t, ErrCodeOperationFailed, GetCode(wrapped))
}

func TestGetCodeOnPlainError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("boom")))
	assert.False(t, IsCode(errors.New("boom"), ErrCodeNotFound))
}

func TestResultFrom(t *testing.T) {
	t.Run("nil error is success", func(t *testing.T) {
		res := ResultFrom(nil)
		assert.True(t, res.Success)
		assert.Empty(t, res.Errors)
	})

	t.Run("structured error carries its message", func(t *testing.T) {
		res := ResultFrom(Conflict("There is already a role with that name."))
		assert.False(t, res.Success)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "There is already a role with that name.", res.Errors[0])
	})

	t.Run("violations are appended", func(t *testing.T) {
		err := ValidationFailed("Password does not meet policy").
			WithDetail("violations", []string{"password must contain at least one digit"})
		res := ResultFrom(err)
		assert.Equal(t, []string{"Password does not meet policy", "password must contain at least one digit"}, res.Errors)
	})

	t.Run("plain error is hidden", func(t *testing.T) {
		res := ResultFrom(errors.New("pq: relation does not exist"))
		assert.False(t, res.Success)
		assert.Equal(t, []string{"internal error"}, res.Errors)
		assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("x")))
	})
}
