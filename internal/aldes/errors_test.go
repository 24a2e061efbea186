package aldes

import (
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestAuthError(t *testing.T) {
	err := &AuthError{StatusCode: 401, Body: `{"error_description":"bad password"}`}
	assert.Equal(t, "authentication failed: bad password", err.Error())

	err = &AuthError{StatusCode: 401, Body: "not json"}
	assert.Equal(t, "authentication failed: Unauthorized", err.Error())
	assert.Empty(t, err.Description())
}

func TestCommandError(t *testing.T) {
	err := &CommandError{StatusCode: 400, Body: "bad request"}
	assert.Equal(t, "api error: 400 Bad Request", err.Error())
}

func TestStaleDataError(t *testing.T) {
	cause := &CommandError{StatusCode: 500}
	err := &StaleDataError{Err: cause, Age: 90500 * time.Millisecond}
	assert.Equal(t, "serving stale data (age: 1m30s): api error: 500 Internal Server Error", err.Error())
	assert.ErrorIs(t, err, cause)

	var cmdErr *CommandError
	assert.ErrorAs(t, err, &cmdErr)
}

func TestFetchRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport error", errors.New("connection refused"), true},
		{"wrapped transport error", fmt.Errorf("authenticate: %w", errors.New("timeout")), true},
		{"auth rejection", &AuthError{StatusCode: 401}, false},
		{"server error", &CommandError{StatusCode: 502}, true},
		{"client error", &CommandError{StatusCode: 404}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fetchRetryable(tt.err))
		})
	}
}

func TestCommandRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport error", errors.New("connection refused"), true},
		{"auth rejection", &AuthError{StatusCode: 401}, false},
		{"server error", &CommandError{StatusCode: 502}, false},
		{"client error", &CommandError{StatusCode: 400}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commandRetryable(tt.err))
		})
	}
}
