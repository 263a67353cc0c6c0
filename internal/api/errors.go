package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call
type Kind int

const (
	// KindTransport means the request never produced a response: network
	// unreachable, request construction failed or the context ended.
	KindTransport Kind = iota + 1
	// KindStatus means the backend answered with a failure status or an
	// envelope with success=false.
	KindStatus
	// KindDecode means the response body could not be understood.
	KindDecode
	// KindRejected means the backend explicitly refused a login.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Login failure codes
const (
	CodeNotAuthorized        = "not_authorized"
	CodeAuthenticationFailed = "authentication_failed"
)

const (
	defaultRejectedMessage = "You are not authorized to access this application."
	defaultLoginMessage    = "Authentication failed. Please try again."
)

// Error is the single failure shape returned by every Client method
type Error struct {
	Op      string // client operation, e.g. "send_message"
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Code    string // machine-readable reason from the backend, if any
	Message string // human-readable reason, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s error (HTTP %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the *Error from err
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRejected reports whether err is an explicit login rejection
func IsRejected(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == KindRejected
}
