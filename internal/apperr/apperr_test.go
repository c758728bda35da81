package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad", nil), http.StatusBadRequest},
		{Unauthenticated("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Dependency("mail", errors.New("smtp down")), http.StatusBadGateway},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Status(), tt.err.Message)
	}
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("load task: %w", NotFound("Task not found"))
	got := From(wrapped)
	assert.Equal(t, KindNotFound, got.Kind)
	assert.Equal(t, "Task not found", got.Message)

	plain := From(errors.New("db exploded"))
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, "Internal server error", plain.Message)
	assert.EqualError(t, errors.Unwrap(plain), "db exploded")
}
