package walletauth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when a call needs a session token but the client has none
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	// Reason is the verification reason or error text returned by the server
	Reason string
}

// Error formats the status and server reason
func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Reason)
}
