package azdo

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// ConfigurationError reports invalid or missing configuration detected before
// any remote call is made. Runs failing this way exit with code 1.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// AuthenticationError reports that no usable credential could be established.
// Runs failing this way exit with code 2. The error never carries secret
// material.
type AuthenticationError struct {
	// Source is the credential source that was rejected, when a single
	// authoritative source was in play (e.g. "token").
	Source CredentialSource
	// Tried lists every provider consulted, in order.
	Tried  []string
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("authentication failed (source %s): %s", e.Source, e.Reason)
	}
	if len(e.Tried) > 0 {
		return fmt.Sprintf("authentication failed after trying %s: %s", strings.Join(e.Tried, ", "), e.Reason)
	}
	return "authentication failed: " + e.Reason
}

// Hint suggests the alternative credential method.
func (e *AuthenticationError) Hint() string {
	if e.Source == CredentialSourceToken {
		return "Check the PAT's expiry and scopes, or unset --pat/AZDO_PAT to use the ambient Azure credential chain (az login, managed identity)."
	}
	return "Sign in with `az login`, or supply a personal access token via --pat or AZDO_PAT."
}

// RequestError is a non-2xx (or otherwise unusable) response from the
// service. It deliberately carries no URL so it can be surfaced to users
// verbatim.
type RequestError struct {
	StatusCode int
	// Message is the service-supplied error message, when the body carried
	// one, else the generic status text.
	Message string
	// TypeKey is the service's exception type key, e.g.
	// "ProjectDoesNotExistWithNameException".
	TypeKey string
}

func (e *RequestError) Error() string {
	status := http.StatusText(e.StatusCode)
	if status == "" {
		status = fmt.Sprintf("status %d", e.StatusCode)
	}
	if e.Message != "" && e.Message != status {
		return fmt.Sprintf("azure devops api: %d %s: %s", e.StatusCode, status, e.Message)
	}
	return fmt.Sprintf("azure devops api: %d %s", e.StatusCode, status)
}

// Transient reports whether the response indicates a condition worth
// retrying: throttling or server-side failure.
func (e *RequestError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient classifies an error from a client call as retryable. Transport
// timeouts, connection failures and truncated bodies are transient; every
// other failure (auth, not-found, malformed input, cancellation) is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var re *RequestError
	if errors.As(err, &re) {
		return re.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// Connection-level failures (refused, reset, DNS) arrive as *net.OpError
	// wrapped in *url.Error.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	return false
}

// IsSubsystemDisabled reports whether err is the service announcing that a
// whole API family is unavailable for the project, e.g. the Analytics
// extension being disabled (VS403496).
func IsSubsystemDisabled(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	return strings.Contains(re.Message, "VS403496") || strings.Contains(re.TypeKey, "NotEnabled")
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}
