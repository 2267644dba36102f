package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindNetwork     Kind = "NETWORK"
	KindTimeout     Kind = "TIMEOUT"
	KindServerError Kind = "SERVER_ERROR"
	KindMalformed   Kind = "MALFORMED_RESPONSE"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrNetwork     = &Error{Kind: KindNetwork}
	ErrTimeout     = &Error{Kind: KindTimeout}
	ErrServerError = &Error{Kind: KindServerError}
	ErrMalformed   = &Error{Kind: KindMalformed}
)

// Error is returned by every Client call that fails.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, ErrTimeout).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op) && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// classifyTransport maps an http.Client error. ctx is the per-call
// context, so its deadline means the call timed out.
func classifyTransport(ctx context.Context, op string, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func statusError(op string, status int, detail string) *Error {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &Error{Kind: KindServerError, Op: op, StatusCode: status, Detail: detail}
}
