package report

import (
	"errors"
	"net/http"
)

// ValidationError rejects a submission before any outbound call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError reports a failed collaborator call. Message is safe to
// return to the caller; Err keeps the full upstream detail for logs.
type UpstreamError struct {
	Step    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StatusCode maps a pipeline error to an HTTP status.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ClientMessage returns the description surfaced to API callers.
func ClientMessage(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

func upstream(step, message string, err error) *UpstreamError {
	return &UpstreamError{Step: step, Message: message, Err: err}
}
