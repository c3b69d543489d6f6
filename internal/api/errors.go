package api

import (
	"errors"
	"fmt"
)

// Kind classifies a facade failure.
type Kind int

const (
	// KindNetwork covers transport failures: unreachable host, timeout.
	// Retryable by user action, never automatically.
	KindNetwork Kind = iota + 1
	// KindAuth covers missing, expired or rejected tokens. Surfaced to
	// force a re-login.
	KindAuth
	// KindServer covers non-2xx responses with a body.
	KindServer
	// KindDecode covers malformed or unexpected payload shapes.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "authentication"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Error is a typed facade failure. The facade never panics and never
// returns an untyped remote error.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s error (%d)", e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of a facade error, or zero for anything else.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// IsAuth reports whether the error means the session is unauthenticated.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }
