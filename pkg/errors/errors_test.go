package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	err := NewNotFoundError("order not found")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "order not found", err.Error())
}

func TestWithContext(t *testing.T) {
	err := NewConflictError("already dispatched").WithContext("order_id", "ORD001")

	assert.Equal(t, "ORD001", err.Context["order_id"])
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"duplicate id", NewDuplicateIDError("id taken"), true},
		{"temporary", NewTemporaryError("backend hiccup"), true},
		{"timeout", NewTimeoutError("deadline exceeded"), true},
		{"not found", NewNotFoundError("missing"), false},
		{"invalid input", NewInvalidInputError("bad payload"), false},
		{"conflict", NewConflictError("state clash"), false},
		{"bare sentinel", ErrTemporaryFailure, true},
		{"wrapped sentinel", fmt.Errorf("call failed: %w", ErrTimeout), true},
		{"unknown", errors.New("mystery"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"app error not found", NewNotFoundError("missing"), http.StatusNotFound},
		{"app error invalid", NewInvalidInputError("bad"), http.StatusBadRequest},
		{"app error conflict", NewConflictError("clash"), http.StatusConflict},
		{"app error duplicate", NewDuplicateIDError("taken"), http.StatusConflict},
		{"sentinel not found", ErrNotFound, http.StatusNotFound},
		{"sentinel no match", ErrNoMatch, http.StatusNotFound},
		{"sentinel invalid", fmt.Errorf("rejected: %w", ErrInvalidInput), http.StatusBadRequest},
		{"sentinel timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"sentinel unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"sentinel rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, StatusCode(tt.err))
		})
	}
}
