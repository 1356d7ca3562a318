package receipts

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors. Use errors.Is to test for them through any wrapping.
var (
	ErrMissingAPIKey = errors.New("receipts: GETRECEIPTS_API_KEY is required")
	ErrEmptyClaimID  = errors.New("receipts: claim id is empty")

	ErrValidation       = errors.New("receipts: request rejected as invalid")
	ErrUnauthorized     = errors.New("receipts: unauthorized")
	ErrForbidden        = errors.New("receipts: forbidden")
	ErrNotFound         = errors.New("receipts: not found")
	ErrRateLimited      = errors.New("receipts: rate limited")
	ErrServer           = errors.New("receipts: server error")
	ErrUnexpectedStatus = errors.New("receipts: unexpected status")
	ErrDecode           = errors.New("receipts: response body could not be decoded")

	errEmptyResult = errors.New("response body is not a JSON object")
)

// ConfigError reports a missing or invalid client setting. It is returned before
// any request is attempted.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("receipts: config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// HTTPError is returned for every response other than 200 OK, and for a 200 whose
// body cannot be decoded.
type HTTPError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	// RetryAfter is parsed from the Retry-After header on 429 responses.
	RetryAfter time.Duration

	decodeErr error
}

func (e *HTTPError) Error() string {
	if e.decodeErr != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.decodeErr)
	}
	snippet := bodySnippet([]byte(e.Body), 512)
	if snippet == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, snippet)
}

// Kind maps the status code to one of the sentinel errors.
func (e *HTTPError) Kind() error {
	if e.decodeErr != nil {
		return ErrDecode
	}
	switch {
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return ErrUnexpectedStatus
	}
}

// Is lets errors.Is match the status kind.
func (e *HTTPError) Is(target error) bool {
	return target == e.Kind()
}

func (e *HTTPError) Unwrap() error { return e.decodeErr }

// TransportError wraps a network-level failure (timeout, refused connection, DNS).
// Unwrap returns the transport's error unchanged.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline or client timeout.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(e.Err.Error()), "deadline exceeded")
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an HTTPError.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
