package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotConfigured   = errors.New("provider_not_configured")
	ErrInvalidResponse = errors.New("provider_invalid_response")
)

// ErrorDetail is one entry of the provider's error details list.
type ErrorDetail struct {
	Field       string `json:"field,omitempty"`
	Value       string `json:"value,omitempty"`
	Location    string `json:"location,omitempty"`
	Issue       string `json:"issue"`
	Description string `json:"description,omitempty"`
}

// APIError is a request the provider rejected, or could not be reached for.
// Code is the HTTP status, 0 when the request never completed.
type APIError struct {
	Code    int           `json:"code"`
	Name    string        `json:"name,omitempty"`
	Message string        `json:"message"`
	DebugID string        `json:"debug_id,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	if e.DebugID != "" {
		msg += "; PayPal Debug ID: " + e.DebugID
	}
	return msg
}

// HasIssue reports whether any detail carries the given issue code.
func (e *APIError) HasIssue(issue string) bool {
	for _, d := range e.Details {
		if strings.EqualFold(d.Issue, issue) {
			return true
		}
	}
	return false
}

// AsAPIError unwraps err into an APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == http.StatusNotFound
}

// DebugIDOf extracts a provider debug id from an error or payload.
func DebugIDOf(src any) string {
	switch v := src.(type) {
	case nil:
		return ""
	case Payload:
		return v.DebugID()
	case error:
		if apiErr, ok := AsAPIError(v); ok {
			return apiErr.DebugID
		}
	}
	return ""
}

// WithDebugID appends the provider debug id found on src to message.
func WithDebugID(message string, src any) string {
	if id := DebugIDOf(src); id != "" {
		return message + fmt.Sprintf(" PayPal Debug ID: %s", id)
	}
	return message
}
