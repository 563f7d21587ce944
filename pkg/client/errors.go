package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failed upstream fetch.
type Kind string

const (
	// KindNotFound means the symbol or resource does not exist upstream.
	KindNotFound Kind = "not_found"

	// KindRateLimited means the provider refused the request (429 or 418).
	KindRateLimited Kind = "rate_limited"

	// KindUnavailable covers network errors, timeouts, 5xx and undecodable bodies.
	KindUnavailable Kind = "unavailable"
)

// Sentinel errors matched by errors.Is against any *FetchError of that kind.
var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("unavailable")
)

// FetchError describes a failed request to an upstream provider.
type FetchError struct {
	Kind       Kind
	Provider   string
	Endpoint   string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Provider, e.Endpoint, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

// Summary is a short human-readable description used in CLI diagnostics.
func (e *FetchError) Summary() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("not found on %s", e.Provider)
	case KindRateLimited:
		if e.StatusCode == http.StatusTeapot {
			return fmt.Sprintf("temporarily banned by %s, retry later", e.Provider)
		}
		return fmt.Sprintf("rate limited by %s, retry in %s", e.Provider, humanWait(e.RetryAfter))
	default:
		if e.StatusCode != 0 {
			return fmt.Sprintf("%s unavailable (status %d)", e.Provider, e.StatusCode)
		}
		return fmt.Sprintf("%s unavailable", e.Provider)
	}
}

// KindOf returns the Kind of err, or "" if err is not a fetch error.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Describe returns the Summary of the fetch error in err's chain, or
// err.Error() for any other error.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Summary()
	}
	return err.Error()
}

// classifyStatus maps an HTTP status to a Kind. ok is false for 2xx.
func classifyStatus(status int) (kind Kind, ok bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status == http.StatusTooManyRequests, status == http.StatusTeapot:
		return KindRateLimited, true
	default:
		return KindUnavailable, true
	}
}

func humanWait(d time.Duration) string {
	switch {
	case d <= 0:
		return "a moment"
	case d >= 55*time.Second && d <= 65*time.Second:
		return "a minute"
	default:
		return d.Round(time.Second).String()
	}
}
