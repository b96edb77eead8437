package domain

import (
	"errors"
	"net/http"
)

// HandleError is a rejected delivery. Status is returned to the provider so
// it retries according to its own policy.
type HandleError struct {
	Status  int
	Message string
	Err     error
}

func (e *HandleError) Error() string { return e.Message }

func (e *HandleError) Unwrap() error { return e.Err }

func rejected(status int, message string, err error) *HandleError {
	return &HandleError{Status: status, Message: message, Err: err}
}

// NewMissingHeadersError rejects a delivery without signature headers.
func NewMissingHeadersError() *HandleError {
	return rejected(http.StatusBadRequest, MessageMissingHeaders, ErrMissingHeaders)
}

// NewVerificationUnavailableError wraps a transport failure of the signature check.
func NewVerificationUnavailableError(cause error) *HandleError {
	return rejected(http.StatusInternalServerError, MessageVerificationUnavailable, errors.Join(ErrVerificationUnavailable, cause))
}

// NewVerificationFailedError rejects a delivery whose signature did not verify.
func NewVerificationFailedError() *HandleError {
	return rejected(http.StatusBadRequest, MessageVerificationFailed, ErrVerificationFailed)
}

// NewInvalidEventError rejects a body that is not a webhook envelope.
func NewInvalidEventError() *HandleError {
	return rejected(http.StatusBadRequest, "Invalid webhook event.", ErrInvalidEvent)
}
