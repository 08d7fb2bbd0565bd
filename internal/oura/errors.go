package oura

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/spiffcs/vitals/internal/auth"
	"github.com/spiffcs/vitals/internal/constants"
)

// Kind classifies a fetch failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotConfigured
	KindUnauthorized
	KindNotFound
	KindRateLimited
	KindServerError
	KindNetwork
	KindDecoding
	KindCancelled
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindNetwork:
		return "network"
	case KindDecoding:
		return "decoding"
	case KindCancelled:
		return "cancelled"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

var (
	// ErrPageLimit is returned when a drain follows more cursors than the
	// configured ceiling.
	ErrPageLimit = errors.New("page limit exceeded")

	// ErrCursorLoop is returned when the server hands back a cursor that
	// was already followed.
	ErrCursorLoop = errors.New("pagination cursor repeated")
)

// Error is a classified API failure.
type Error struct {
	Kind       Kind
	Endpoint   string
	StatusCode int
	// Message is the server's diagnostic text for non-2xx responses.
	Message string
	// RetryAfter is the server-requested wait, zero when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Endpoint != "" {
		b.WriteString(" (")
		b.WriteString(e.Endpoint)
		b.WriteString(")")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServerError, KindNetwork:
		return true
	default:
		return false
	}
}

// KindOf classifies any error returned by this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether err is a retryable API failure.
func IsRetryable(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

func cancelled(endpoint string, err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindCancelled {
		return apiErr
	}
	return &Error{Kind: KindCancelled, Endpoint: endpoint, Err: err}
}

// classify maps a non-2xx response to an Error. It returns nil for 2xx.
func classify(endpoint string, resp *Response) *Error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	e := &Error{
		Endpoint:   endpoint,
		StatusCode: code,
		Message:    errorMessage(resp.Body),
	}
	switch {
	case code == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case code == http.StatusNotFound:
		e.Kind = KindNotFound
	case code == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case code >= 500:
		e.Kind = KindServerError
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	default:
		e.Kind = KindHTTP
	}
	return e
}

// parseRetryAfter reads a numeric Retry-After value in seconds. HTTP-date
// values are ignored and fall back to computed backoff.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// errorMessage extracts a diagnostic from an error body, which may be JSON
// ({"detail": ...} or {"message": ...}) or plain text.
func errorMessage(body []byte) string {
	if len(body) > constants.MaxErrorBodyBytes {
		body = body[:constants.MaxErrorBodyBytes]
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	if strings.HasPrefix(text, "{") && json.Unmarshal([]byte(text), &payload) == nil {
		switch d := payload.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Title != "" {
			return payload.Title
		}
	}
	return text
}
