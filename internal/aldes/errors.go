package aldes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AuthError indicates the server refused to issue a token, typically because
// the credentials or the API key are wrong. Retrying won't help.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if description := e.Description(); description != "" {
		return "authentication failed: " + description
	}
	return "authentication failed: " + http.StatusText(e.StatusCode)
}

// Description returns the server's error_description, if the response body
// contained one.
func (e *AuthError) Description() string {
	var body struct {
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	return body.ErrorDescription
}

// CommandError indicates the server rejected a request with a non-2xx status.
type CommandError struct {
	StatusCode int
	Body       string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// StaleDataError indicates GetProducts could not refresh the device list and
// returned an expired one instead. Err holds the reason the refresh failed,
// Age how old the returned list is.
type StaleDataError struct {
	Err error
	Age time.Duration
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("serving stale data (age: %s): %s", e.Age.Truncate(time.Second), e.Err.Error())
}

func (e *StaleDataError) Unwrap() error {
	return e.Err
}

// fetchRetryable reports whether a failed retrieval is worth retrying. Bad
// credentials and client-side rejections are permanent; server errors and
// transport failures are transient.
func fetchRetryable(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// commandRetryable reports whether a failed command is worth retrying. Only
// transport failures are: a command the server has seen may have taken effect,
// so replaying it on an HTTP error risks running it twice.
func commandRetryable(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var cmdErr *CommandError
	return !errors.As(err, &cmdErr)
}
