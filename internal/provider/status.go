// Package provider classifies upstream panel outcomes into the status values the
// rest of the pipeline reports on.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusTimeout     Status = "timeout"
	StatusUnreachable Status = "unreachable"
	StatusBadStatus   Status = "bad_status"
	StatusMalformed   Status = "malformed"
)

// OK reports whether s is StatusOK.
func (s Status) OK() bool { return s == StatusOK }

// Unavailable reports whether the panel could not be reached at all (timeout or refusal).
func (s Status) Unavailable() bool { return s == StatusTimeout || s == StatusUnreachable }

// ErrMalformed marks a response that arrived but did not have the expected shape.
var ErrMalformed = errors.New("malformed response")

// BadStatusError is returned for a non-2xx response.
type BadStatusError struct {
	Code int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("upstream status %d %s", e.Code, http.StatusText(e.Code))
}

// Classify maps a transport or decode error to a Status. nil is StatusOK.
func Classify(err error) Status {
	if err == nil {
		return StatusOK
	}
	var bad *BadStatusError
	if errors.As(err, &bad) {
		return StatusBadStatus
	}
	if errors.Is(err, ErrMalformed) {
		return StatusMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return StatusTimeout
	}
	// http.Client wraps some deadline errors without exposing net.Error.
	msg := err.Error()
	if strings.Contains(msg, "Client.Timeout") || strings.Contains(msg, "deadline exceeded") {
		return StatusTimeout
	}
	return StatusUnreachable
}

// CheckResponse returns a *BadStatusError for any non-2xx response.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BadStatusError{Code: resp.StatusCode}
	}
	return nil
}
