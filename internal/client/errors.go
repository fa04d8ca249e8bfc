package client

import (
	"errors"
	"fmt"
)

// NetworkErrorMessage is shown to users when the API cannot be reached
const NetworkErrorMessage = "Network error. Please check your connection."

var (
	// ErrUnauthorized means the API rejected the session token
	ErrUnauthorized = errors.New("session expired, please log in again")
	// ErrNetwork covers transport failures and undecodable responses
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("request timed out")
)

// APIError is a well-formed response with success=false
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request rejected with status %d: %s", e.StatusCode, e.Message)
}

// UserMessage returns the text a user should see for err
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "Session expired. Please login again."
	case errors.Is(err, ErrTimeout):
		return "The request timed out. Please try again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrNetwork):
		return NetworkErrorMessage
	}
	return err.Error()
}
