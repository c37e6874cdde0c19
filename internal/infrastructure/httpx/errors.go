package httpx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The retry decision is a pure function of it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork is a connection-level failure (refused, reset, DNS).
	KindNetwork
	// KindTimeout means the per-request deadline passed.
	KindTimeout
	// KindRequest covers failures building the request or reading the body.
	KindRequest
	// KindHTTP is a non-2xx response.
	KindHTTP
	// KindDecode is a 2xx response whose body is not the expected JSON.
	KindDecode
	// KindAuth is a login that did not yield a token.
	KindAuth
	// KindRetryExhausted wraps the last error once the policy is used up.
	KindRetryExhausted
	// KindDelivery is a notification the transport did not acknowledge.
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindRequest:
		return "request"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	case KindAuth:
		return "auth"
	case KindRetryExhausted:
		return "retry exhausted"
	case KindDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by the executor and the API
// clients built on it. Use errors.As or KindOf to inspect it.
type Error struct {
	Kind   Kind
	Method string
	URL    string

	// Set for KindHTTP.
	StatusCode int
	Reason     string
	Body       string

	// Set for KindRetryExhausted.
	Attempts int

	Err error
}

func (e *Error) Error() string {
	target := e.Method
	if e.URL != "" {
		target += " " + e.URL
	}
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: %d %s", target, e.StatusCode, e.Reason)
	case KindRetryExhausted:
		return fmt.Sprintf("%s: giving up after %d attempts: %v", target, e.Attempts, e.Err)
	}
	msg := e.Kind.String() + " error"
	if target != "" {
		msg = target + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status of the first KindHTTP error in err's
// chain, or 0.
func StatusCode(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Kind == KindHTTP {
			return e.StatusCode
		}
		err = e.Err
	}
	return 0
}

// Retryable reports whether a failure of kind k is a transient transport
// fault worth re-issuing. Application-level rejections are not.
func Retryable(k Kind) bool {
	switch k {
	case KindNetwork, KindTimeout, KindRequest:
		return true
	default:
		return false
	}
}
