// Package connect is a browser-imitating HTTP client for Garmin Connect. It
// drives the CAS single-sign-on handshake, uploads activity files and edits
// activity metadata through the web proxy endpoints.
package connect

import (
	"errors"
	"fmt"
	"net/http"
)

// Authentication failure kinds. Each handshake step fails with exactly one of
// these, wrapped in an *AuthError. Use errors.Is(err, connect.ErrTokenNotFound).
var (
	ErrDiscoveryFailed        = errors.New("connect: SSO hostname discovery failed")
	ErrLoginPageUnavailable   = errors.New("connect: login page unavailable")
	ErrTokenNotFound          = errors.New("connect: login token not found in login page")
	ErrCredentialsRejected    = errors.New("connect: credentials rejected")
	ErrMissingSessionCookie   = errors.New("connect: SSO session cookie missing")
	ErrMissingServiceTicket   = errors.New("connect: service ticket missing from login response")
	ErrTicketRedemptionFailed = errors.New("connect: service ticket redemption failed")
	ErrIdentityCheckFailed    = errors.New("connect: identity check failed")
)

// Sentinel errors for HTTP status code classification of non-auth calls.
var (
	ErrBadRequest   = errors.New("connect: bad request")
	ErrUnauthorized = errors.New("connect: unauthorized")
	ErrForbidden    = errors.New("connect: forbidden")
	ErrNotFound     = errors.New("connect: not found")
	ErrConflict     = errors.New("connect: conflict")
	ErrThrottled    = errors.New("connect: throttled")
	ErrServerError  = errors.New("connect: server error")
)

// AuthStep numbers the handshake states, in execution order.
type AuthStep int

// Handshake steps.
const (
	StepDiscovery AuthStep = iota + 1
	StepLoginPage
	StepLoginToken
	StepCredentials
	StepSessionCookie
	StepServiceTicket
	StepTicketRedemption
	StepIdentity
)

var stepNames = map[AuthStep]string{
	StepDiscovery:        "discovery",
	StepLoginPage:        "login page",
	StepLoginToken:       "login token",
	StepCredentials:      "credentials",
	StepSessionCookie:    "session cookie",
	StepServiceTicket:    "service ticket",
	StepTicketRedemption: "ticket redemption",
	StepIdentity:         "identity",
}

func (s AuthStep) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}

	return fmt.Sprintf("step(%d)", int(s))
}

// kindForStep maps a handshake step to its failure kind.
func kindForStep(s AuthStep) error {
	switch s {
	case StepDiscovery:
		return ErrDiscoveryFailed
	case StepLoginPage:
		return ErrLoginPageUnavailable
	case StepLoginToken:
		return ErrTokenNotFound
	case StepCredentials:
		return ErrCredentialsRejected
	case StepSessionCookie:
		return ErrMissingSessionCookie
	case StepServiceTicket:
		return ErrMissingServiceTicket
	case StepTicketRedemption:
		return ErrTicketRedemptionFailed
	default:
		return ErrIdentityCheckFailed
	}
}

// AuthError reports which handshake step failed. Kind is one of the
// authentication sentinels; Err is the optional underlying cause (transport
// error, decode error). StatusCode is zero when no response was received.
type AuthError struct {
	Step       AuthStep
	Kind       error
	StatusCode int
	Err        error
}

func newAuthError(step AuthStep, status int, cause error) *AuthError {
	return &AuthError{
		Step:       step,
		Kind:       kindForStep(step),
		StatusCode: status,
		Err:        cause,
	}
}

func (e *AuthError) Error() string {
	msg := e.Kind.Error()

	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

// Unwrap exposes both the failure kind and the cause to errors.Is/As.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// HTTPError wraps a sentinel error with the HTTP status code and the response
// body for debugging.
type HTTPError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("connect: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
